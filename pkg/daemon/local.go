package daemon

import (
	"context"
	"sync"

	"github.com/grovetools/finder/config"
	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/scenarios"
	"github.com/grovetools/finder/pkg/scenarios/file"
	"github.com/grovetools/finder/pkg/search"
	"github.com/sirupsen/logrus"
)

// LocalClient implements Client in-process. Every mutation loads the
// scenario file, applies the change through a Collection and saves it.
type LocalClient struct {
	cfg    *config.Config
	logger *logrus.Entry

	mu       sync.Mutex
	executor *search.Executor
	history  *history.Store
}

// NewLocalClient creates a new LocalClient.
func NewLocalClient(cfg *config.Config) *LocalClient {
	return &LocalClient{
		cfg:    cfg,
		logger: logging.NewLogger("client"),
	}
}

func (c *LocalClient) load() (*scenarios.Collection, error) {
	list, err := file.Load(c.cfg.Storage.ScenariosFile)
	if err != nil {
		return nil, err
	}
	coll := scenarios.New(scenarios.WithLogger(c.logger))
	coll.SetAll(list)
	return coll, nil
}

// mutate applies fn to the stored list and saves the result.
func (c *LocalClient) mutate(fn func(*scenarios.Collection) error) error {
	coll, err := c.load()
	if err != nil {
		return err
	}
	if err := fn(coll); err != nil {
		return err
	}
	return file.Save(c.cfg.Storage.ScenariosFile, coll.Scenarios())
}

// Scenarios returns the list stored in the scenario file.
func (c *LocalClient) Scenarios(ctx context.Context) ([]models.SearchScenario, error) {
	return file.Load(c.cfg.Storage.ScenariosFile)
}

// Reset empties the scenario file.
func (c *LocalClient) Reset(ctx context.Context) error {
	return c.mutate(func(coll *scenarios.Collection) error {
		coll.Reset()
		return nil
	})
}

// SetAll replaces the scenario file contents.
func (c *LocalClient) SetAll(ctx context.Context, list []models.SearchScenario) error {
	return c.mutate(func(coll *scenarios.Collection) error {
		coll.SetAll(list)
		return nil
	})
}

// Add appends a scenario.
func (c *LocalClient) Add(ctx context.Context, scenario models.SearchScenario) error {
	return c.mutate(func(coll *scenarios.Collection) error {
		coll.Add(scenario)
		return nil
	})
}

// UpdateAt replaces the scenario at index.
func (c *LocalClient) UpdateAt(ctx context.Context, index int, scenario models.SearchScenario) error {
	return c.mutate(func(coll *scenarios.Collection) error {
		return coll.UpdateAt(index, scenario)
	})
}

// RemoveAt deletes the scenario at index.
func (c *LocalClient) RemoveAt(ctx context.Context, index int) error {
	return c.mutate(func(coll *scenarios.Collection) error {
		return coll.RemoveAt(index)
	})
}

func (c *LocalClient) getExecutor() (*search.Executor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.executor != nil {
		return c.executor, nil
	}
	executor, err := search.NewExecutor(
		search.WithTimeout(c.cfg.SearchTimeout()),
		search.WithWorkers(c.cfg.Search.Workers),
		search.WithExcludes(c.cfg.Search.Exclude),
	)
	if err != nil {
		return nil, err
	}
	c.executor = executor
	return executor, nil
}

// getHistory opens the history database on first use. It returns nil when
// history is disabled or cannot be opened.
func (c *LocalClient) getHistory() *history.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.history != nil || !c.cfg.HistoryEnabled() {
		return c.history
	}
	hist, err := history.Open(c.cfg.Storage.HistoryDB)
	if err != nil {
		c.logger.WithError(err).Warn("Search history unavailable")
		return nil
	}
	c.history = hist
	return hist
}

// Search runs the request in this process.
func (c *LocalClient) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	var stored []models.SearchScenario
	if req.Index != nil {
		list, err := c.Scenarios(ctx)
		if err != nil {
			return nil, err
		}
		stored = list
	}
	scenario, err := search.ResolveScenario(req, stored)
	if err != nil {
		return nil, err
	}

	executor, err := c.getExecutor()
	if err != nil {
		return nil, err
	}
	info, results, runErr := executor.Execute(ctx, req.Term, scenario)

	if hist := c.getHistory(); hist != nil {
		entry := history.NewEntry(req.Term, scenario, len(results), info.Duration, runErr)
		entry.ID = info.ID
		if _, err := hist.Record(context.WithoutCancel(ctx), entry); err != nil {
			c.logger.WithError(err).Warn("Failed to record search")
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	if results == nil {
		results = []models.SearchResult{}
	}
	return &models.SearchResponse{
		RunID:      info.ID,
		Term:       req.Term,
		Scenario:   scenario,
		Results:    results,
		DurationMs: info.Duration.Milliseconds(),
	}, nil
}

// CancelSearch cancels searches started by this client.
func (c *LocalClient) CancelSearch(ctx context.Context) (int, error) {
	c.mu.Lock()
	executor := c.executor
	c.mu.Unlock()
	if executor == nil {
		return 0, nil
	}
	return executor.Cancel(), nil
}

// StreamScenarios follows the scenario file: external edits are loaded
// through a file.Sync and forwarded as updates.
func (c *LocalClient) StreamScenarios(ctx context.Context) (<-chan models.StreamUpdate, error) {
	coll := scenarios.New(scenarios.WithLogger(c.logger))
	syncer := file.NewSync(coll, c.cfg.Storage.ScenariosFile,
		file.WithDebounce(c.cfg.WatchDebounce()),
		file.WithSyncLogger(c.logger.WithField("component", "scenario-sync")),
	)
	if err := syncer.Start(ctx); err != nil {
		return nil, err
	}

	ch := make(chan models.StreamUpdate, 16)
	updates := make(chan models.StreamUpdate, 16)
	unsubscribe := coll.Subscribe(func(list []models.SearchScenario) {
		// The first call is the current list, delivered synchronously below.
		select {
		case updates <- models.StreamUpdate{Type: models.UpdateScenarios, Version: coll.Version(), Scenarios: list}:
		default:
		}
	})
	initial := <-updates
	initial.Type = models.UpdateInitial

	go func() {
		defer close(ch)
		defer syncer.Close()
		defer unsubscribe()

		ch <- initial
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				select {
				case ch <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// History returns recent searches from the local database.
func (c *LocalClient) History(ctx context.Context, limit int) ([]history.Entry, error) {
	hist := c.getHistory()
	if hist == nil {
		return nil, nil
	}
	return hist.Recent(ctx, limit)
}

// ClearHistory deletes all recorded searches.
func (c *LocalClient) ClearHistory(ctx context.Context) (int64, error) {
	hist := c.getHistory()
	if hist == nil {
		return 0, nil
	}
	return hist.Clear(ctx)
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close releases the history database.
func (c *LocalClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.history != nil {
		err := c.history.Close()
		c.history = nil
		return err
	}
	return nil
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
