package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/finder/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every XDG lookup at a temp dir so the user's real
// configuration never leaks into tests.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FINDER_HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestExtensions(t *testing.T) {
	isolate(t)
	yamlContent := []byte(`
version: "1.0"
logging:
  level: debug
  format:
    preset: json
monitoring:
  enabled: true
  interval: 30
`)

	cfg, err := LoadFromBytes(yamlContent, false)
	require.NoError(t, err)
	require.NotNil(t, cfg.Extensions)
	assert.Contains(t, cfg.Extensions, "logging")
	assert.NotContains(t, cfg.Extensions, "version")

	type MonitoringConfig struct {
		Enabled  bool `yaml:"enabled"`
		Interval int  `yaml:"interval"`
	}

	var monCfg MonitoringConfig
	require.NoError(t, cfg.UnmarshalExtension("monitoring", &monCfg))
	assert.True(t, monCfg.Enabled)
	assert.Equal(t, 30, monCfg.Interval)

	var missing MonitoringConfig
	require.NoError(t, cfg.UnmarshalExtension("absent", &missing))
	assert.False(t, missing.Enabled)
}

func TestLoadFromBytesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadFromBytes([]byte(`version: "1.0"`), false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "config", "scenarios.yml"), cfg.Storage.ScenariosFile)
	assert.Equal(t, filepath.Join(home, "state", "history.db"), cfg.Storage.HistoryDB)
	assert.Equal(t, filepath.Join(home, "run", "finderd.sock"), cfg.Daemon.Socket)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, 30*time.Second, cfg.SearchTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.WatchDebounce())
}

func TestLoadFromBytesTOML(t *testing.T) {
	isolate(t)
	content := `
version = "1.0"

[search]
timeout = "5s"
workers = 2
exclude = ["node_modules", ".git"]

[logging]
level = "warn"
`
	cfg, err := LoadFromBytes([]byte(content), true)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.SearchTimeout())
	assert.Equal(t, 2, cfg.Search.Workers)
	assert.Equal(t, []string{"node_modules", ".git"}, cfg.Search.Exclude)
	assert.Contains(t, cfg.Extensions, "logging")
	assert.NotContains(t, cfg.Extensions, "search")
}

func TestLoadFromBytesEnvExpansion(t *testing.T) {
	isolate(t)
	t.Setenv("FINDER_TEST_SCENARIOS", "/srv/finder/scenarios.toml")

	cfg, err := LoadFromBytes([]byte(`
storage:
  scenarios_file: ${FINDER_TEST_SCENARIOS}
search:
  timeout: ${FINDER_TEST_UNSET:-10s}
`), false)
	require.NoError(t, err)
	assert.Equal(t, "/srv/finder/scenarios.toml", cfg.Storage.ScenariosFile)
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout())
}

func TestLoadFromBytesRejects(t *testing.T) {
	isolate(t)

	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"unknown search key", "search:\n  depth: 3\n", errors.ErrCodeConfigInvalid},
		{"wrong type", "search:\n  workers: many\n", errors.ErrCodeConfigInvalid},
		{"bad timeout", "search:\n  timeout: soon\n", errors.ErrCodeConfigValidation},
		{"negative timeout", "search:\n  timeout: -1s\n", errors.ErrCodeConfigValidation},
		{"bad exclude", "search:\n  exclude: ['[']\n", errors.ErrCodeConfigValidation},
		{"not yaml", "search: [\n", errors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.content), false)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "finder.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestLoadFromLayers(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "config", "finder.yml"), `
search:
  timeout: 45s
  workers: 8
logging:
  level: info
  format:
    preset: simple
`)

	project := t.TempDir()
	writeFile(t, filepath.Join(project, "finder.yml"), `
search:
  workers: 2
logging:
  level: debug
`)
	writeFile(t, filepath.Join(project, "finder.override.yml"), `
storage:
  history: false
`)

	sub := filepath.Join(project, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))

	cfg, layers, err := LoadFromWithLogger(sub, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.SearchTimeout())
	assert.Equal(t, 2, cfg.Search.Workers)
	assert.False(t, cfg.HistoryEnabled())

	logging, ok := cfg.Extensions["logging"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "debug", logging["level"])
	assert.NotNil(t, logging["format"], "extension maps merge key by key")

	require.Len(t, layers, 3)
	assert.Equal(t, SourceGlobal, layers[0].Source)
	assert.Equal(t, SourceProject, layers[1].Source)
	assert.Equal(t, SourceOverride, layers[2].Source)
}

func TestLoadFromWithoutAnyFile(t *testing.T) {
	isolate(t)
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, cfg.Version)
}

func TestLoadFromBrokenProjectFails(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "finder.yml"), "search: [\n")

	_, err := LoadFrom(project)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestFindConfigFile(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "finder.toml"), `version = "1.0"`)
	sub := filepath.Join(project, "deep")
	require.NoError(t, os.MkdirAll(sub, 0755))

	path, err := FindConfigFile(sub)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "finder.toml"), path)
}
