// Package engine wires the daemon's components together: the scenario
// collection and its file, the search executor, history and config reloads.
package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/finder/config"
	"github.com/grovetools/finder/internal/daemon/store"
	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/pkg/daemon"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/paths"
	"github.com/grovetools/finder/pkg/scenarios"
	"github.com/grovetools/finder/pkg/scenarios/file"
	"github.com/grovetools/finder/pkg/search"
	"github.com/sirupsen/logrus"
)

// Engine owns the daemon state.
type Engine struct {
	logger    *logrus.Entry
	configDir string

	coll    *scenarios.Collection
	store   *store.Store
	sync    *file.Sync
	history *history.Store

	mu       sync.RWMutex
	cfg      *config.Config
	executor *search.Executor
	// inflight counts searches per executor, including executors replaced
	// by a reload while their searches were still running.
	inflight map[*search.Executor]int
}

// New builds an engine from cfg. configDir is where configuration reloads
// start their search for finder.yml; empty disables config watching.
func New(cfg *config.Config, configDir string, logger *logrus.Entry) (*Engine, error) {
	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return nil, err
	}

	coll := scenarios.New(scenarios.WithLogger(logger.WithField("component", "scenarios")))
	e := &Engine{
		logger:    logger,
		configDir: configDir,
		coll:      coll,
		store:     store.New(coll),
		cfg:       cfg,
		executor:  executor,
		inflight:  make(map[*search.Executor]int),
	}

	e.sync = file.NewSync(coll, cfg.Storage.ScenariosFile,
		file.WithDebounce(cfg.WatchDebounce()),
		file.WithSyncLogger(logger.WithField("component", "scenario-sync")),
		file.OnReload(func(count int) {
			logger.WithField("count", count).Info("Scenario file reloaded")
		}),
	)

	if cfg.HistoryEnabled() {
		hist, err := history.Open(cfg.Storage.HistoryDB)
		if err != nil {
			// History is optional; searches still work without it.
			logger.WithError(err).Warn("Search history disabled")
		} else {
			e.history = hist
		}
	}

	return e, nil
}

// progressEvery is how often long walks report progress in the debug log.
const progressEvery = 10000

func newExecutor(cfg *config.Config, logger *logrus.Entry) (*search.Executor, error) {
	searchLogger := logger.WithField("component", "search")
	return search.NewExecutor(
		search.WithTimeout(cfg.SearchTimeout()),
		search.WithWorkers(cfg.Search.Workers),
		search.WithExcludes(cfg.Search.Exclude),
		search.WithLogger(searchLogger),
		search.WithProgress(func(scanned int) {
			if scanned%progressEvery == 0 {
				searchLogger.WithField("scanned", scanned).Debug("Search in progress")
			}
		}),
	)
}

// Start loads the scenario file and starts the watchers. It blocks until
// ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.sync.Start(ctx); err != nil {
		return err
	}
	e.logger.WithFields(logrus.Fields{
		"file":      e.sync.Path(),
		"scenarios": e.coll.Len(),
	}).Info("Scenarios loaded")

	var wg sync.WaitGroup
	if e.configDir != "" {
		dirs := []string{paths.ConfigDir(), e.configDir}
		if project, err := config.FindConfigFile(e.configDir); err == nil {
			dirs = append(dirs, filepath.Dir(project))
		}
		watcher, err := daemon.NewConfigWatcher(dirs, e.Config().WatchDebounce(), func(file string) {
			e.ReloadConfig(file)
		})
		if err != nil {
			e.logger.WithError(err).Warn("Config watching disabled")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				watcher.Start(ctx)
			}()
		}
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// ReloadConfig re-reads the configuration and swaps in a new executor.
// Invalid configuration is logged and the previous settings stay active.
// Storage paths are fixed for the daemon's lifetime.
func (e *Engine) ReloadConfig(changed string) {
	cfg, err := config.LoadFrom(e.configDir)
	if err != nil {
		e.logger.WithError(err).WithField("file", changed).Warn("Ignoring invalid configuration")
		return
	}
	executor, err := newExecutor(cfg, e.logger)
	if err != nil {
		e.logger.WithError(err).WithField("file", changed).Warn("Ignoring invalid configuration")
		return
	}

	e.mu.Lock()
	e.cfg = cfg
	e.executor = executor
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"timeout": cfg.SearchTimeout(),
		"workers": cfg.Search.Workers,
		"exclude": cfg.Search.Exclude,
	}).Info("Search settings reloaded")
	e.store.BroadcastConfigReload(filepath.Base(changed))
}

// Search resolves the request against the collection, runs it and records
// the outcome.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest) (models.SearchResponse, error) {
	scenario, err := search.ResolveScenario(req, e.coll.Scenarios())
	if err != nil {
		return models.SearchResponse{}, err
	}

	executor := e.acquireExecutor()
	info, results, err := executor.Execute(ctx, req.Term, scenario)
	e.releaseExecutor(executor)
	e.record(ctx, info, len(results), err)
	if err != nil {
		return models.SearchResponse{}, err
	}

	if results == nil {
		results = []models.SearchResult{}
	}
	return models.SearchResponse{
		RunID:      info.ID,
		Term:       req.Term,
		Scenario:   scenario,
		Results:    results,
		DurationMs: info.Duration.Milliseconds(),
	}, nil
}

func (e *Engine) record(ctx context.Context, info search.RunInfo, count int, runErr error) {
	entry := history.NewEntry(info.Term, info.Scenario, count, info.Duration, runErr)
	entry.ID = info.ID

	e.store.BroadcastSearch(models.SearchSummary{
		RunID:        info.ID,
		Term:         info.Term,
		ScenarioName: info.Scenario.Name,
		ScenarioPath: info.Scenario.Path,
		Results:      count,
		DurationMs:   entry.DurationMs,
		Status:       string(entry.Status),
	})

	if e.history == nil {
		return
	}
	// The request context may already be cancelled; recording must not be.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := e.history.Record(recordCtx, entry); err != nil {
		e.logger.WithError(err).Warn("Failed to record search")
	}
}

// CancelSearches stops all in-flight searches, including those started
// before the last config reload.
func (e *Engine) CancelSearches() int {
	e.mu.RLock()
	executors := []*search.Executor{e.executor}
	for ex := range e.inflight {
		if ex != e.executor {
			executors = append(executors, ex)
		}
	}
	e.mu.RUnlock()

	cancelled := 0
	for _, ex := range executors {
		cancelled += ex.Cancel()
	}
	return cancelled
}

func (e *Engine) acquireExecutor() *search.Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight[e.executor]++
	return e.executor
}

func (e *Engine) releaseExecutor(ex *search.Executor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[ex] <= 1 {
		delete(e.inflight, ex)
		return
	}
	e.inflight[ex]--
}

// Executor returns the active executor.
func (e *Engine) Executor() *search.Executor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.executor
}

// Config returns the active configuration.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Collection returns the scenario collection.
func (e *Engine) Collection() *scenarios.Collection {
	return e.coll
}

// Store returns the update hub.
func (e *Engine) Store() *store.Store {
	return e.store
}

// History returns the history store, or nil when disabled.
func (e *Engine) History() *history.Store {
	return e.history
}

// Close releases the file watcher, subscribers and the database.
func (e *Engine) Close() error {
	e.store.Close()
	err := e.sync.Close()
	if e.history != nil {
		if herr := e.history.Close(); err == nil {
			err = herr
		}
	}
	return err
}
