package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, opts ...Option) *Executor {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.QuietLogger("search"))}, opts...)
	e, err := NewExecutor(opts...)
	require.NoError(t, err)
	return e
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"report.md":              "# report",
		"Report-final.GO":        "package main",
		"notes.txt":              "notes",
		".reportrc":              "x",
		"reports/":               "",
		"reports/q1-report.md":   "q1",
		"reports/deep/report.go": "package deep",
		"node_modules/report.js": "x",
	})
	return root
}

func resultNames(results []models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

func TestRunFilters(t *testing.T) {
	root := fixture(t)

	tests := []struct {
		name     string
		term     string
		scenario models.SearchScenario
		want     []string
	}{
		{
			name:     "top level both",
			term:     "report",
			scenario: models.SearchScenario{Level: models.LevelTop, Target: models.TargetBoth},
			want:     []string{".reportrc", "Report-final.GO", "report.md", "reports"},
		},
		{
			name:     "recursive files",
			term:     "report",
			scenario: models.SearchScenario{Level: models.LevelAll, Target: models.TargetFiles},
			want:     []string{".reportrc", "Report-final.GO", "q1-report.md", "report.go", "report.js", "report.md"},
		},
		{
			name:     "recursive folders",
			term:     "report",
			scenario: models.SearchScenario{Level: models.LevelAll, Target: models.TargetFolders},
			want:     []string{"reports"},
		},
		{
			name:     "extension filter ignores case and spaces",
			term:     "report",
			scenario: models.SearchScenario{Level: models.LevelAll, Target: models.TargetBoth, FileExtensions: "go, .MD"},
			want:     []string{"Report-final.GO", "q1-report.md", "report.go", "report.md", "reports"},
		},
		{
			name:     "dotfile has no extension",
			term:     "rc",
			scenario: models.SearchScenario{Level: models.LevelTop, Target: models.TargetFiles, FileExtensions: "reportrc"},
			want:     []string{},
		},
		{
			name:     "case insensitive term",
			term:     "NOTES",
			scenario: models.SearchScenario{Level: models.LevelAll, Target: models.TargetFiles},
			want:     []string{"notes.txt"},
		},
	}

	e := newTestExecutor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scenario.Path = root
			results, err := e.Run(context.Background(), tt.term, tt.scenario)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, resultNames(results))
		})
	}
}

func TestRunIncludesRootWhenItMatches(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "needle")
	testutil.WriteTree(t, parent, map[string]string{"needle/hay.txt": "x"})

	e := newTestExecutor(t)
	results, err := e.Run(context.Background(), "needle", models.SearchScenario{
		Path: root, Level: models.LevelTop, Target: models.TargetFolders,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, root, results[0].Path)
	assert.True(t, results[0].IsDir)
}

func TestRunFollowsSymlinkedRoot(t *testing.T) {
	parent := t.TempDir()
	testutil.WriteTree(t, parent, map[string]string{"real/docs/needle.txt": "x"})
	link := filepath.Join(parent, "link")
	require.NoError(t, os.Symlink(filepath.Join(parent, "real"), link))

	e := newTestExecutor(t)
	for _, tt := range []struct {
		name string
		root string
	}{
		{"direct", filepath.Join(parent, "real")},
		{"via link", link},
	} {
		t.Run(tt.name, func(t *testing.T) {
			results, err := e.Run(context.Background(), "needle", models.SearchScenario{
				Path: tt.root, Level: models.LevelAll, Target: models.TargetBoth,
			})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, filepath.Join(tt.root, "docs", "needle.txt"), results[0].Path)
		})
	}

	results, err := e.Run(context.Background(), "link", models.SearchScenario{
		Path: link, Level: models.LevelTop, Target: models.TargetFolders,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "link", results[0].Name)
	assert.Equal(t, link, results[0].Path)
}

func TestRunResultFields(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"a.txt": "12345",
		"dir/":  "",
	})

	e := newTestExecutor(t)
	results, err := e.Run(context.Background(), "", models.SearchScenario{
		Path: root, Level: models.LevelTop, Target: models.TargetBoth,
	})
	require.NoError(t, err)

	byName := map[string]models.SearchResult{}
	for _, r := range results {
		byName[r.Name] = r
	}
	require.Contains(t, byName, "a.txt")
	require.Contains(t, byName, "dir")

	assert.Equal(t, uint64(5), byName["a.txt"].Size)
	assert.False(t, byName["a.txt"].IsDir)
	assert.Equal(t, filepath.Join(root, "a.txt"), byName["a.txt"].Path)
	assert.Equal(t, uint64(0), byName["dir"].Size)
	assert.True(t, byName["dir"].IsDir)

	_, err = time.ParseInLocation(models.ModifiedAtLayout, byName["a.txt"].ModifiedAt, time.Local)
	assert.NoError(t, err)
}

func TestRunSortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"old.log":   "",
		"mid.log":   "",
		"new.log":   "",
		"tie-b.log": "",
		"tie-a.log": "",
	})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	testutil.SetModTime(t, root, "old.log", base)
	testutil.SetModTime(t, root, "mid.log", base.Add(time.Hour))
	testutil.SetModTime(t, root, "new.log", base.Add(2*time.Hour))
	testutil.SetModTime(t, root, "tie-a.log", base.Add(-time.Hour))
	testutil.SetModTime(t, root, "tie-b.log", base.Add(-time.Hour))

	e := newTestExecutor(t, WithWorkers(4))
	results, err := e.Run(context.Background(), ".log", models.SearchScenario{
		Path: root, Level: models.LevelAll, Target: models.TargetFiles,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new.log", "mid.log", "old.log", "tie-a.log", "tie-b.log"}, resultNames(results))
	assert.Equal(t, "2024-03-01 14:00:00", results[0].ModifiedAt)
}

func TestRunExcludes(t *testing.T) {
	root := fixture(t)
	e := newTestExecutor(t, WithExcludes([]string{"node_modules", "reports/deep"}))

	results, err := e.Run(context.Background(), "report", models.SearchScenario{
		Path: root, Level: models.LevelAll, Target: models.TargetFiles,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".reportrc", "Report-final.GO", "q1-report.md", "report.md"}, resultNames(results))
}

func TestRunMissingPath(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.Run(context.Background(), "x", models.SearchScenario{
		Path: filepath.Join(t.TempDir(), "missing"), Level: models.LevelAll, Target: models.TargetBoth,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePathNotFound))
	assert.Contains(t, err.Error(), "Path does not exist")
}

func TestRunCancelledContext(t *testing.T) {
	root := fixture(t)
	e := newTestExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, "report", models.SearchScenario{Path: root, Level: models.LevelAll, Target: models.TargetBoth})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSearchCancelled))
	assert.Equal(t, 0, e.Running())
}

func TestRunExpiredDeadlineIsTimeout(t *testing.T) {
	root := fixture(t)
	e := newTestExecutor(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := e.Run(ctx, "report", models.SearchScenario{Path: root, Level: models.LevelAll, Target: models.TargetBoth})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSearchTimeout))

	info, ok := e.LastRun()
	require.True(t, ok)
	assert.Error(t, info.Err)
}

func TestCancelStopsRunsInFlight(t *testing.T) {
	e := newTestExecutor(t)

	ctx, cancel := context.WithCancelCause(context.Background())
	e.mu.Lock()
	e.running["run-1"] = cancel
	e.mu.Unlock()

	e.Cancel()
	assert.ErrorIs(t, context.Cause(ctx), errCancelled)
	assert.True(t, errors.Is(e.classify(ctx, ctx.Err()), errors.ErrCodeSearchCancelled))
}

func TestCancelDoesNotAffectLaterRuns(t *testing.T) {
	root := fixture(t)
	e := newTestExecutor(t)
	e.Cancel()

	results, err := e.Run(context.Background(), "notes", models.SearchScenario{Path: root, Level: models.LevelAll, Target: models.TargetFiles})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	info, ok := e.LastRun()
	require.True(t, ok)
	assert.Equal(t, 1, info.Results)
	assert.NotEmpty(t, info.ID)
}

func TestInvalidExcludePattern(t *testing.T) {
	_, err := NewExecutor(WithLogger(testutil.QuietLogger("search")), WithExcludes([]string{"["}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestParseExtensions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"go", []string{"go"}},
		{"go,MD", []string{"go", "md"}},
		{" .go , ,txt", []string{"go", "txt"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseExtensions(tt.in), "input %q", tt.in)
	}
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "go", extensionOf("main.go"))
	assert.Equal(t, "gz", extensionOf("a.tar.gz"))
	assert.Equal(t, "", extensionOf(".bashrc"))
	assert.Equal(t, "", extensionOf("Makefile"))
	assert.Equal(t, "", extensionOf("trailing."))
}

func TestExecuteReturnsRunInfo(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"alpha.txt": "a", "beta.txt": "b"})

	e := newTestExecutor(t)
	info, results, err := e.Execute(context.Background(), "alpha", models.SearchScenario{
		Name:   "Root",
		Path:   root,
		Level:  models.LevelAll,
		Target: models.TargetFiles,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "alpha", info.Term)
	assert.Equal(t, 1, info.Results)
	assert.Equal(t, "Root", info.Scenario.Name)

	last, ok := e.LastRun()
	require.True(t, ok)
	assert.Equal(t, info.ID, last.ID)
}

func TestWithProgressCountsVisitedEntries(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.txt": "a", "b/c.txt": "c"})

	var last int
	e := newTestExecutor(t, WithProgress(func(scanned int) { last = scanned }))
	_, err := e.Run(context.Background(), "", models.SearchScenario{Path: root, Level: models.LevelAll, Target: models.TargetBoth})
	require.NoError(t, err)
	// root, a.txt, b, b/c.txt
	assert.Equal(t, 4, last)
}

func TestTrailingCommaDoesNotMatchExtensionlessFiles(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"Makefile": "all:", "readme.md": "x"})

	e := newTestExecutor(t)
	results, err := e.Run(context.Background(), "", models.SearchScenario{
		Path: root, Level: models.LevelAll, Target: models.TargetFiles, FileExtensions: "md,",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"readme.md"}, resultNames(results))
}
