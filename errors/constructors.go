package errors

import (
	"fmt"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *GroveError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *GroveError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// IndexOutOfRange is returned by positional collection operations.
func IndexOutOfRange(index, length int) *GroveError {
	return New(ErrCodeIndexOutOfRange,
		fmt.Sprintf("index %d out of range for %d scenarios", index, length)).
		WithDetail("index", index).
		WithDetail("length", length)
}

// ScenarioFileInvalid creates an error for a scenario file that fails to parse or validate
func ScenarioFileInvalid(path, reason string) *GroveError {
	return New(ErrCodeScenarioFileInvalid, fmt.Sprintf("invalid scenario file %s: %s", path, reason)).
		WithDetail("path", path)
}

// PathNotFound creates a search root not found error
func PathNotFound(path string) *GroveError {
	return New(ErrCodePathNotFound, "Path does not exist").
		WithDetail("path", path)
}

// SearchTimeout creates a search timeout error
func SearchTimeout(timeout time.Duration) *GroveError {
	return New(ErrCodeSearchTimeout, "Search operation timed out").
		WithDetail("timeout", timeout.String())
}

// SearchCancelled creates a search cancelled error
func SearchCancelled() *GroveError {
	return New(ErrCodeSearchCancelled, "Search cancelled")
}

// DaemonUnavailable wraps a failure to reach the daemon
func DaemonUnavailable(err error) *GroveError {
	return Wrap(err, ErrCodeDaemonUnavailable, "finder daemon is not reachable")
}
