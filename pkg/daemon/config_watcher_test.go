package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsConfigFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"finder.yml", true},
		{"finder.yaml", true},
		{".finder.yml", true},
		{"finder.toml", true},
		{"finder.override.yml", true},
		{"/home/me/.config/finder/finder.yml", true},
		{"scenarios.yml", false},
		{"finder.json", false},
		{"grove.yml", false},
		{".finder.yml.swp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfigFile(tt.name))
		})
	}
}

func TestConfigWatcherDebouncesChanges(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())
	dir := t.TempDir()

	reloads := make(chan string, 10)
	w, err := NewConfigWatcher([]string{dir, filepath.Join(dir, "missing")}, 50*time.Millisecond, func(file string) {
		reloads <- file
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	cfgPath := filepath.Join(dir, "finder.yml")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(cfgPath, []byte("search:\n  workers: 2\n"), 0644))
	}

	select {
	case file := <-reloads:
		assert.Equal(t, cfgPath, file)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
	}

	select {
	case file := <-reloads:
		t.Fatalf("unexpected second reload for %s", file)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConfigWatcherNeedsADirectory(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())
	_, err := NewConfigWatcher([]string{filepath.Join(t.TempDir(), "nope")}, 0, nil)
	assert.Error(t, err)
}
