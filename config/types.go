package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig controls where scenarios and history are kept.
type StorageConfig struct {
	ScenariosFile string `yaml:"scenarios_file,omitempty" toml:"scenarios_file,omitempty" jsonschema:"description=Scenario file (.yml/.yaml/.toml/.json); default is scenarios.yml in the config directory"`
	HistoryDB     string `yaml:"history_db,omitempty" toml:"history_db,omitempty" jsonschema:"description=SQLite database for search history"`
	History       *bool  `yaml:"history,omitempty" toml:"history,omitempty" jsonschema:"description=Record searches in the history database (default: true)"`
}

// SearchConfig tunes the search executor.
type SearchConfig struct {
	Timeout string   `yaml:"timeout,omitempty" toml:"timeout,omitempty" jsonschema:"description=Maximum duration of a single search (Go duration; default 30s)"`
	Workers int      `yaml:"workers,omitempty" toml:"workers,omitempty" jsonschema:"minimum=0,description=Matching goroutines; 0 uses the number of CPUs"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty" jsonschema:"description=Paths to skip relative to the scenario root (.dockerignore syntax)"`
}

// DaemonConfig holds settings for finderd.
type DaemonConfig struct {
	Socket          string `yaml:"socket,omitempty" toml:"socket,omitempty" jsonschema:"description=Unix socket the daemon listens on"`
	WatchDebounceMs int    `yaml:"watch_debounce_ms,omitempty" toml:"watch_debounce_ms,omitempty" jsonschema:"minimum=0,description=Debounce for scenario and config file watching in milliseconds (default 100)"`
}

// Config represents the finder.yml configuration
type Config struct {
	Version string        `yaml:"version" toml:"version" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Storage StorageConfig `yaml:"storage,omitempty" toml:"storage,omitempty" jsonschema:"description=Scenario and history storage"`
	Search  SearchConfig  `yaml:"search,omitempty" toml:"search,omitempty" jsonschema:"description=Search executor settings"`
	Daemon  DaemonConfig  `yaml:"daemon,omitempty" toml:"daemon,omitempty" jsonschema:"description=Daemon settings"`

	// Extensions captures all other top-level keys, such as logging.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

// knownKeys are the top-level keys decoded into Config fields.
var knownKeys = map[string]bool{
	"version": true,
	"storage": true,
	"search":  true,
	"daemon":  true,
}

// Default values.
const (
	DefaultVersion         = "1.0"
	DefaultTimeout         = 30 * time.Second
	DefaultWatchDebounceMs = 100
)

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Storage.ScenariosFile == "" {
		c.Storage.ScenariosFile = defaultScenariosFile()
	}
	if c.Storage.HistoryDB == "" {
		c.Storage.HistoryDB = defaultHistoryDB()
	}
	if c.Storage.History == nil {
		trueVal := true
		c.Storage.History = &trueVal
	}
	if c.Search.Timeout == "" {
		c.Search.Timeout = DefaultTimeout.String()
	}
	if c.Daemon.Socket == "" {
		c.Daemon.Socket = defaultSocket()
	}
	if c.Daemon.WatchDebounceMs == 0 {
		c.Daemon.WatchDebounceMs = DefaultWatchDebounceMs
	}
}

// SearchTimeout returns the parsed search timeout, or DefaultTimeout when
// unset or invalid. Validate reports invalid values.
func (c *Config) SearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// HistoryEnabled reports whether searches are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.Storage.History == nil || *c.Storage.History
}

// WatchDebounce returns the file watch debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Daemon.WatchDebounceMs) * time.Millisecond
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded finder.yml into the provided target struct. The target must be a
// pointer. A missing key leaves the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ConfigSource identifies the origin of a configuration layer.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceGlobal   ConfigSource = "global"
	SourceProject  ConfigSource = "project"
	SourceOverride ConfigSource = "override"
)

// Layer is one configuration file that contributed to the final config.
type Layer struct {
	Source ConfigSource `json:"source" yaml:"source"`
	Path   string       `json:"path" yaml:"path"`
}
