// Package paths provides XDG-compliant path resolution for finder.
//
// Resolution order:
// 1. FINDER_HOME (portable root) → $FINDER_HOME/{config,data,state,cache,run}
// 2. XDG env vars → $XDG_*_HOME/finder
// 3. Platform defaults → ~/.config/finder, ~/.local/state/finder, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "finder"

// base resolves one XDG base directory.
func base(homeSub, xdgVar string, fallback ...string) string {
	if finderHome := os.Getenv("FINDER_HOME"); finderHome != "" {
		return filepath.Join(finderHome, homeSub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir returns the finder configuration directory.
// Used for finder.yml and the default scenarios file.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the finder data directory.
func DataDir() string {
	return base("data", "XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the finder state directory.
// Used for the history database, logs and the daemon PID file.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the finder cache directory.
func CacheDir() string {
	return base("cache", "XDG_CACHE_HOME", ".cache")
}

// LogDir returns the directory for log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the finder runtime directory for sockets.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if finderHome := os.Getenv("FINDER_HOME"); finderHome != "" {
		return filepath.Join(finderHome, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the default path of the daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "finderd.sock")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "finderd.pid")
}

// DaemonLogPath returns the file the daemon writes its log to.
func DaemonLogPath() string {
	return filepath.Join(LogDir(), "finderd.log")
}

// EnsureDirs creates all finder directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		StateDir(),
		CacheDir(),
		LogDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
