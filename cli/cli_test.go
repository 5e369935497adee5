package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	assert.Equal(t, []string{"one two", "three", "four five"}, lines)

	assert.Equal(t, []string{"short", "", "kept"}, wrapText("short\n\nkept", 20))
}

func TestSplitExamples(t *testing.T) {
	desc, ex := splitExamples("Runs a search.\n\nExamples:\n  finder search main")
	assert.Equal(t, "Runs a search.", desc)
	assert.Equal(t, "finder search main", ex)

	desc, ex = splitExamples("No examples here")
	assert.Equal(t, "No examples here", desc)
	assert.Empty(t, ex)
}

func TestSplitChoices(t *testing.T) {
	tests := []struct {
		usage   string
		desc    string
		choices []string
	}{
		{"Target: folders, files, or both (default both)", "Target: (default both)", []string{"folders", "files", "both"}},
		{"Level: top, all", "Level: top, all", nil},
		{"Plain usage", "Plain usage", nil},
	}
	for _, tt := range tests {
		t.Run(tt.usage, func(t *testing.T) {
			desc, choices := splitChoices(tt.usage)
			assert.Equal(t, tt.desc, desc)
			assert.Equal(t, tt.choices, choices)
		})
	}
}

func TestStyledHelpWritesToCommandOutput(t *testing.T) {
	root := NewStandardCommand("finder", "Search the filesystem with saved scenarios")
	sub := &cobra.Command{Use: "search [term]", Short: "Run a search", Run: func(*cobra.Command, []string) {}}
	sub.Flags().String("target", "both", "Target: folders, files, or both")
	root.AddCommand(sub)
	ApplyStyledHelpRecursive(root)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"search", "--help"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "FINDER SEARCH")
	assert.Contains(t, out, "USAGE")
	assert.Contains(t, out, "--target")
	assert.Contains(t, out, "• folders")
}

func TestGetOptions(t *testing.T) {
	cmd := NewStandardCommand("finder", "")
	require.NoError(t, cmd.ParseFlags([]string{"-v", "--json", "-c", "/tmp/finder.yml"}))

	opts := GetOptions(cmd)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.JSONOutput)
	assert.Equal(t, "/tmp/finder.yml", opts.ConfigFile)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"out of range", errors.IndexOutOfRange(5, 2), []string{"No scenario at index 5 (there are 2)", "finder scenarios list"}},
		{"daemon", errors.DaemonUnavailable(assert.AnError), []string{"not reachable", "finder daemon start"}},
		{"timeout", errors.SearchTimeout(2 * time.Second), []string{"timed out after 2s"}},
		{"path", errors.PathNotFound("/nope"), []string{"/nope"}},
		{"invalid input", errors.New(errors.ErrCodeInvalidInput, "term is required"), []string{"term is required"}},
		{"plain", assert.AnError, []string{"Error:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &ErrorHandler{Out: &buf}
			assert.Equal(t, tt.err, h.Handle(tt.err))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}

	assert.NoError(t, NewErrorHandler(false).Handle(nil))
}

func TestRenderScenarios(t *testing.T) {
	var buf bytes.Buffer
	RenderScenarios(&buf, nil)
	assert.Contains(t, buf.String(), "No scenarios saved")

	buf.Reset()
	RenderScenarios(&buf, []models.SearchScenario{
		{Name: "Go sources", Path: "/src", Level: models.LevelAll, Target: models.TargetFiles, FileExtensions: "go"},
		{Name: "Home", Path: "/home", Level: models.LevelTop, Target: models.TargetBoth},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "Go sources")
	assert.Contains(t, lines[2], "*")
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	RenderResults(&buf, []models.SearchResult{
		{Name: "src", Path: "/p/src", IsDir: true},
		{Name: "main.go", Path: "/p/main.go", Size: 2048, ModifiedAt: "2020-01-02 03:04:05"},
	}, 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "src/")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "2 matches in 1.5s")

	buf.Reset()
	RenderResults(&buf, nil, 0)
	assert.Contains(t, buf.String(), "No matches.")
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	RenderHistory(&buf, []history.Entry{{
		Term:         "main",
		ScenarioPath: "/src",
		ResultCount:  1200,
		DurationMs:   42,
		Status:       history.StatusOK,
		CreatedAt:    time.Now().Add(-time.Hour),
	}})
	out := buf.String()
	assert.Contains(t, out, `"main"`)
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "42ms")
	assert.Contains(t, out, "/src")
}

func TestVersionCommandJSON(t *testing.T) {
	root := NewStandardCommand("finder", "")
	root.AddCommand(NewVersionCommand(version.Info{Version: "1.2.3", Commit: "abcdef0123"}))

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), `"version": "1.2.3"`)

	buf.Reset()
	root.SetArgs([]string{"version", "--json=false"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "finder 1.2.3 (abcdef0)")
}

func TestProgressReporterNoTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "Searching")
	p.Start()
	p.Start()
	p.Done()
	assert.Zero(t, p.Done())
	assert.Empty(t, buf.String())
}

func TestNewTheme(t *testing.T) {
	assert.Equal(t, terminalColors, NewTheme("terminal").Colors)
	assert.Equal(t, kanagawaColors, NewTheme("unknown").Colors)
}
