// Package state persists small pieces of CLI state between invocations,
// such as the last search, in StateDir()/state.yml.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/finder/pkg/paths"
	"gopkg.in/yaml.v3"
)

// Well-known keys.
const (
	KeyLastTerm     = "search.last_term"
	KeyLastScenario = "search.last_scenario"
)

// State is a generic map of key-value pairs.
type State map[string]interface{}

// FilePath returns the path to the state file.
func FilePath() string {
	return filepath.Join(paths.StateDir(), "state.yml")
}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func Load() (State, error) {
	data, err := os.ReadFile(FilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state == nil {
		state = make(State)
	}
	return state, nil
}

// Save writes the state file.
func Save(state State) error {
	path := FilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Get retrieves a value from the state by key.
func Get(key string) (interface{}, bool, error) {
	state, err := Load()
	if err != nil {
		return nil, false, err
	}
	val, ok := state[key]
	return val, ok, nil
}

// GetString returns the string stored at key, or "" when missing or not a string.
func GetString(key string) (string, error) {
	val, ok, err := Get(key)
	if err != nil || !ok {
		return "", err
	}
	str, _ := val.(string)
	return str, nil
}

// GetInt returns the integer stored at key. ok is false when the key is
// missing or holds something else.
func GetInt(key string) (int, bool, error) {
	val, found, err := Get(key)
	if err != nil || !found {
		return 0, false, err
	}
	n, ok := val.(int)
	return n, ok, nil
}

// Set sets a value in the state.
func Set(key string, value interface{}) error {
	return Update(map[string]interface{}{key: value})
}

// Update sets several keys with a single write.
func Update(values map[string]interface{}) error {
	state, err := Load()
	if err != nil {
		return err
	}
	for k, v := range values {
		state[k] = v
	}
	return Save(state)
}

// Delete removes a key from the state.
func Delete(key string) error {
	state, err := Load()
	if err != nil {
		return err
	}
	delete(state, key)
	return Save(state)
}
