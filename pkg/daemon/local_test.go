package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/finder/config"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/scenarios/file"
	"github.com/grovetools/finder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	docs = models.SearchScenario{Name: "Docs", Path: "/docs", Level: models.LevelAll, Target: models.TargetFiles}
	src  = models.SearchScenario{Name: "Src", Path: "/src", Level: models.LevelTop, Target: models.TargetBoth}
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FINDER_HOME", home)

	cfg := &config.Config{}
	cfg.Storage.ScenariosFile = filepath.Join(home, "scenarios.yml")
	cfg.Storage.HistoryDB = filepath.Join(home, "history.db")
	cfg.Daemon.WatchDebounceMs = 20
	cfg.SetDefaults()
	return cfg
}

func newLocalClient(t *testing.T) (*LocalClient, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	c := NewLocalClient(cfg)
	c.logger = testutil.QuietLogger("client")
	t.Cleanup(func() { c.Close() })
	return c, cfg
}

func TestLocalMutationsPersist(t *testing.T) {
	c, cfg := newLocalClient(t)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, docs))
	require.NoError(t, c.Add(ctx, src))

	onDisk, err := file.Load(cfg.Storage.ScenariosFile)
	require.NoError(t, err)
	assert.Equal(t, []models.SearchScenario{docs, src}, onDisk)

	updated := src
	updated.Name = "Source"
	require.NoError(t, c.UpdateAt(ctx, 1, updated))
	require.NoError(t, c.RemoveAt(ctx, 0))

	list, err := c.Scenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SearchScenario{updated}, list)

	require.NoError(t, c.SetAll(ctx, []models.SearchScenario{docs, docs}))
	list, err = c.Scenarios(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.Reset(ctx))
	list, err = c.Scenarios(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLocalOutOfRangeLeavesFileAlone(t *testing.T) {
	c, cfg := newLocalClient(t)
	ctx := context.Background()
	require.NoError(t, c.Add(ctx, docs))

	err := c.RemoveAt(ctx, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeIndexOutOfRange))

	err = c.UpdateAt(ctx, -1, src)
	assert.True(t, errors.Is(err, errors.ErrCodeIndexOutOfRange))

	onDisk, err := file.Load(cfg.Storage.ScenariosFile)
	require.NoError(t, err)
	assert.Equal(t, []models.SearchScenario{docs}, onDisk)
}

func TestLocalSearchAndHistory(t *testing.T) {
	c, _ := newLocalClient(t)
	ctx := context.Background()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"plan.md": "x", "src/plan.go": "y"})
	require.NoError(t, c.Add(ctx, models.SearchScenario{Name: "Root", Path: root, Level: models.LevelTop, Target: models.TargetFiles}))

	index := 0
	resp, err := c.Search(ctx, models.SearchRequest{Term: "plan", Index: &index})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "plan.md", resp.Results[0].Name)

	entries, err := c.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resp.RunID, entries[0].ID)

	n, err := c.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cancelled, err := c.CancelSearch(ctx)
	require.NoError(t, err)
	assert.Zero(t, cancelled)
}

func TestLocalSearchWithHistoryDisabled(t *testing.T) {
	c, cfg := newLocalClient(t)
	off := false
	cfg.Storage.History = &off

	adhoc := models.SearchScenario{Name: "Tmp", Path: t.TempDir(), Level: models.LevelTop, Target: models.TargetBoth}
	_, err := c.Search(context.Background(), models.SearchRequest{Term: "x", Scenario: &adhoc})
	require.NoError(t, err)

	entries, err := c.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStreamFollowsFile(t *testing.T) {
	c, cfg := newLocalClient(t)
	require.NoError(t, file.Save(cfg.Storage.ScenariosFile, []models.SearchScenario{docs}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.StreamScenarios(ctx)
	require.NoError(t, err)

	u := <-ch
	assert.Equal(t, models.UpdateInitial, u.Type)
	assert.Equal(t, []models.SearchScenario{docs}, u.Scenarios)

	require.NoError(t, file.Save(cfg.Storage.ScenariosFile, []models.SearchScenario{docs, src}))

	select {
	case u = <-ch:
		assert.Equal(t, models.UpdateScenarios, u.Type)
		assert.Equal(t, []models.SearchScenario{docs, src}, u.Scenarios)
	case <-time.After(3 * time.Second):
		t.Fatal("no update after external edit")
	}

	cancel()
	for range ch {
	}
}

func TestNewFallsBackToLocal(t *testing.T) {
	cfg := testConfig(t)
	c := New(cfg)
	defer c.Close()

	_, ok := c.(*LocalClient)
	assert.True(t, ok)
	assert.False(t, c.IsRunning())
	assert.False(t, Reachable(cfg.Daemon.Socket))
}
