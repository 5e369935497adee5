package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLoggers(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		loggersMu.Lock()
		loggers = make(map[string]*logrus.Entry)
		fileOverride = ""
		loggersMu.Unlock()
	})
}

func TestNewLogger(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())
	resetLoggers(t)

	logger := NewLogger("test-component")
	require.NotNil(t, logger)
	assert.Equal(t, "test-component", logger.Data["component"])

	// Cached per component
	assert.Same(t, logger, NewLogger("test-component"))
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{Config: FormatConfig{}})

	entry := logger.WithField("component", "test")
	entry.Info("Test message")

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "test")
	assert.Contains(t, output, "Test message")
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "search completed",
				Data: logrus.Fields{
					"component": "search",
					"results":   3,
				},
			},
			want: []string{"[INFO]", "search", "search completed", "results=3"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "warning message",
				Data: logrus.Fields{
					"component": "scenario-sync",
				},
			},
			want:    []string{"[WARN]", "warning message"},
			notWant: []string{"scenario-sync"},
		},
		{
			name:   "caller information with function name",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Logger:  func() *logrus.Logger { l := logrus.New(); l.SetReportCaller(true); return l }(),
				Level:   logrus.InfoLevel,
				Message: "with caller",
				Data:    logrus.Fields{"component": "daemon"},
				Caller: &runtime.Frame{
					File:     "/path/to/file.go",
					Line:     42,
					Function: "github.com/example/package.TestFunction",
				},
			},
			want: []string{"[INFO]", "with caller", "[file.go:42 package.TestFunction]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{Config: tt.config}
			output, err := formatter.Format(tt.entry)
			require.NoError(t, err)

			outputStr := string(output)
			for _, want := range tt.want {
				assert.Contains(t, outputStr, want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, outputStr, notWant)
			}
		})
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	formatter := &TextFormatter{Config: FormatConfig{DisableTimestamp: true, DisableComponent: true}}
	out, err := formatter.Format(&logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "m",
		Data:    logrus.Fields{"b": 2, "a": 1, "c": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "[INFO] m a=1 b=2 c=3\n", string(out))
}

func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())
	t.Setenv("FINDER_LOG_LEVEL", "debug")
	t.Setenv("FINDER_LOG_CALLER", "true")
	resetLoggers(t)

	logger := NewLogger("env-test")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.Level)
	assert.True(t, logger.Logger.ReportCaller)
}

func TestFileOverride(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())
	resetLoggers(t)

	path := filepath.Join(t.TempDir(), "logs", "finderd.log")
	SetFileOverride(path)

	NewLogger("daemon").Info("hello from the daemon")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello from the daemon"))
}

func TestShouldLogToStderr(t *testing.T) {
	assert.True(t, shouldLogToStderr("always", logrus.InfoLevel))
	assert.False(t, shouldLogToStderr("never", logrus.DebugLevel))
	assert.True(t, shouldLogToStderr("auto", logrus.DebugLevel))
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("Added %q", "Docs")
	p.Field("count", 2)
	p.Path("file", "/tmp/scenarios.yml")

	out := buf.String()
	assert.Contains(t, out, "Added \"Docs\"")
	assert.Contains(t, out, "count")
	assert.Contains(t, out, "/tmp/scenarios.yml")
}
