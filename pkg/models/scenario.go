package models

import (
	"fmt"
	"strings"
)

// Level controls how deep a search descends below the scenario path.
type Level string

const (
	// LevelTop searches only the immediate children of the path.
	LevelTop Level = "top"
	// LevelAll searches the whole tree.
	LevelAll Level = "all"
)

// Target selects which kind of filesystem entry a search returns.
type Target string

const (
	TargetFolders Target = "folders"
	TargetFiles   Target = "files"
	TargetBoth    Target = "both"
)

// SearchScenario is a saved search preset.
type SearchScenario struct {
	Name           string `json:"name" yaml:"name" toml:"name" jsonschema:"required,description=Display name of the scenario"`
	Path           string `json:"path" yaml:"path" toml:"path" jsonschema:"required,minLength=1,description=Root directory to search"`
	Level          Level  `json:"level" yaml:"level" toml:"level" jsonschema:"required,enum=top,enum=all,description=top searches only the immediate directory; all is recursive"`
	Target         Target `json:"target" yaml:"target" toml:"target" jsonschema:"required,enum=folders,enum=files,enum=both,description=Kinds of entries to return"`
	FileExtensions string `json:"fileExtensions" yaml:"fileExtensions" toml:"fileExtensions" jsonschema:"description=Comma-separated extensions without dots; empty means any"`
}

// MaxDepth returns the walk depth limit for the scenario, or -1 when unbounded.
// The root itself is depth 0.
func (s SearchScenario) MaxDepth() int {
	if s.Level == LevelTop {
		return 1
	}
	return -1
}

// Validate checks the enumerated fields. The collection itself never calls
// this; it is used where scenarios enter the process from outside.
func (s SearchScenario) Validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("scenario %q: path is required", s.Name)
	}
	switch s.Level {
	case LevelTop, LevelAll:
	default:
		return fmt.Errorf("scenario %q: invalid level %q (want top or all)", s.Name, s.Level)
	}
	switch s.Target {
	case TargetFolders, TargetFiles, TargetBoth:
	default:
		return fmt.Errorf("scenario %q: invalid target %q (want folders, files or both)", s.Name, s.Target)
	}
	return nil
}

// ParseLevel converts a user-supplied string into a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelTop, LevelAll:
		return l, nil
	}
	return "", fmt.Errorf("invalid level %q (want top or all)", s)
}

// ParseTarget converts a user-supplied string into a Target.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetFolders, TargetFiles, TargetBoth:
		return t, nil
	}
	return "", fmt.Errorf("invalid target %q (want folders, files or both)", s)
}

// SearchResult is a single filesystem entry matched by a search.
type SearchResult struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	IsDir      bool   `json:"is_dir"`
	Size       uint64 `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ModifiedAtLayout is the local-time layout of SearchResult.ModifiedAt.
const ModifiedAtLayout = "2006-01-02 15:04:05"
