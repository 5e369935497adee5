package config

import (
	"fmt"
	"time"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/util/pathutil"
	"github.com/moby/patternmatcher"
)

// Validate checks if the configuration is valid. It expands ~ and
// environment variables in path settings as a side effect.
func (c *Config) Validate() error {
	if c.Search.Timeout != "" {
		d, err := time.ParseDuration(c.Search.Timeout)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid search.timeout %q", c.Search.Timeout)).
				WithDetail("field", "search.timeout")
		}
		if d <= 0 {
			return errors.New(errors.ErrCodeConfigValidation, "search.timeout must be positive").
				WithDetail("field", "search.timeout")
		}
	}

	if c.Search.Workers < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "search.workers cannot be negative").
			WithDetail("field", "search.workers")
	}

	if len(c.Search.Exclude) > 0 {
		if _, err := patternmatcher.New(c.Search.Exclude); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid search.exclude pattern").
				WithDetail("field", "search.exclude")
		}
	}

	if c.Daemon.WatchDebounceMs < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "daemon.watch_debounce_ms cannot be negative").
			WithDetail("field", "daemon.watch_debounce_ms")
	}

	for _, field := range []struct {
		name  string
		value *string
	}{
		{"storage.scenarios_file", &c.Storage.ScenariosFile},
		{"storage.history_db", &c.Storage.HistoryDB},
		{"daemon.socket", &c.Daemon.Socket},
	} {
		if err := validatePath(field.name, field.value); err != nil {
			return err
		}
	}

	return nil
}

// validatePath expands a path setting in place. Empty values are left for
// SetDefaults.
func validatePath(fieldName string, path *string) error {
	if *path == "" {
		return nil
	}
	expanded, err := pathutil.Expand(*path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid path in %s", fieldName)).
			WithDetail("field", fieldName)
	}
	*path = expanded
	return nil
}
