// Package search runs a SearchScenario against the filesystem.
package search

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/models"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single search run.
const DefaultTimeout = 30 * time.Second

var (
	errTimedOut  = stderrors.New("search timed out")
	errCancelled = stderrors.New("search cancelled")
)

// RunInfo describes a finished run.
type RunInfo struct {
	ID       string                `json:"id"`
	Term     string                `json:"term"`
	Scenario models.SearchScenario `json:"scenario"`
	Started  time.Time             `json:"started"`
	Duration time.Duration         `json:"duration"`
	Results  int                   `json:"results"`
	Err      error                 `json:"-"`
}

// Executor runs searches. It is safe for concurrent use.
type Executor struct {
	timeout  time.Duration
	workers  int
	excludes []string
	matcher  *patternmatcher.PatternMatcher
	logger   *logrus.Entry
	progress func(scanned int)

	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
	last    *RunInfo
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithWorkers sets the number of matching goroutines. Zero means NumCPU.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithExcludes skips entries whose path relative to the scenario root
// matches one of the patterns (.dockerignore syntax).
func WithExcludes(patterns []string) Option {
	return func(e *Executor) {
		e.excludes = patterns
	}
}

// WithProgress registers fn to be called from the walking goroutine after
// every visited entry with the running count. fn must return quickly; the
// walk waits for it.
func WithProgress(fn func(scanned int)) Option {
	return func(e *Executor) {
		e.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor. It fails only when an exclude pattern
// cannot be compiled.
func NewExecutor(opts ...Option) (*Executor, error) {
	e := &Executor{
		timeout: DefaultTimeout,
		workers: runtime.NumCPU(),
		running: make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewLogger("search")
	}
	if len(e.excludes) > 0 {
		pm, err := patternmatcher.New(e.excludes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid exclude pattern")
		}
		e.matcher = pm
	}
	return e, nil
}

// Timeout returns the per-run limit.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Cancel stops every run currently in flight and returns how many there
// were. Runs started afterwards are not affected.
func (e *Executor) Cancel() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, cancel := range e.running {
		cancel(errCancelled)
		e.logger.WithField("run_id", id).Info("Search cancelled")
	}
	return len(e.running)
}

// Running returns the number of runs in flight.
func (e *Executor) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

// LastRun returns information about the most recently finished run.
func (e *Executor) LastRun() (RunInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return RunInfo{}, false
	}
	return *e.last, true
}

// Run searches scenario.Path for entries whose name contains term.
func (e *Executor) Run(ctx context.Context, term string, scenario models.SearchScenario) ([]models.SearchResult, error) {
	_, results, err := e.Execute(ctx, term, scenario)
	return results, err
}

// Execute is Run that also returns the run's metadata. Info is populated
// even when the run fails, except for a missing path.
func (e *Executor) Execute(ctx context.Context, term string, scenario models.SearchScenario) (RunInfo, []models.SearchResult, error) {
	if _, err := os.Stat(scenario.Path); err != nil {
		notFound := errors.PathNotFound(scenario.Path)
		return RunInfo{Term: term, Scenario: scenario, Err: notFound}, nil, notFound
	}

	info := RunInfo{
		ID:       uuid.NewString(),
		Term:     term,
		Scenario: scenario,
		Started:  time.Now(),
	}
	logger := e.logger.WithFields(logrus.Fields{
		"run_id": info.ID,
		"path":   scenario.Path,
		"term":   term,
	})

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	runCtx, cancelTimeout := context.WithTimeoutCause(runCtx, e.timeout, errTimedOut)
	defer cancelTimeout()

	e.mu.Lock()
	e.running[info.ID] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.running, info.ID)
		e.mu.Unlock()
	}()

	logger.WithFields(logrus.Fields{
		"level":  scenario.Level,
		"target": scenario.Target,
		"ext":    scenario.FileExtensions,
	}).Debug("Search started")

	results, err := e.walk(runCtx, term, scenario)
	if err != nil {
		err = e.classify(runCtx, err)
	} else {
		sortResults(results)
	}

	info.Duration = time.Since(info.Started)
	info.Results = len(results)
	info.Err = err
	e.mu.Lock()
	e.last = &info
	e.mu.Unlock()

	if err != nil {
		logger.WithError(err).WithField("duration", info.Duration).Warn("Search failed")
		return info, nil, err
	}
	logger.WithFields(logrus.Fields{
		"results":  len(results),
		"duration": info.Duration,
	}).Info("Search completed")
	return info, results, nil
}

func (e *Executor) classify(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "search failed")
	}
	switch context.Cause(ctx) {
	case errTimedOut, context.DeadlineExceeded:
		return errors.SearchTimeout(e.timeout)
	default:
		return errors.SearchCancelled()
	}
}

type candidate struct {
	path  string
	name  string
	entry fs.DirEntry
}

func (e *Executor) walk(ctx context.Context, term string, scenario models.SearchScenario) ([]models.SearchResult, error) {
	m := newMatcher(term, scenario)
	maxDepth := scenario.MaxDepth()
	root := scenario.Path
	// A symlinked root is followed; results keep the scenario's path prefix.
	walkRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = resolved
	}

	g, gctx := errgroup.WithContext(ctx)
	entries := make(chan candidate, e.workers*4)

	var (
		mu      sync.Mutex
		results []models.SearchResult
		scanned int
	)

	g.Go(func() error {
		defer close(entries)
		return filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped; the walk goes on.
				return nil
			}
			if e.progress != nil {
				scanned++
				e.progress(scanned)
			}
			if cerr := gctx.Err(); cerr != nil {
				return cerr
			}

			depth := 0
			c := candidate{path: root, name: filepath.Base(root), entry: d}
			if path != walkRoot {
				rel, rerr := filepath.Rel(walkRoot, path)
				if rerr != nil {
					return nil
				}
				c.path = filepath.Join(root, rel)
				c.name = d.Name()
				depth = strings.Count(rel, string(filepath.Separator)) + 1
				if e.excluded(rel) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}

			select {
			case entries <- c:
			case <-gctx.Done():
				return gctx.Err()
			}

			if d.IsDir() && maxDepth >= 0 && depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		})
	})

	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			for c := range entries {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, ok := m.match(c.path, c.name, c.entry)
				if !ok {
					continue
				}
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The walk may finish just as the deadline fires.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}

func (e *Executor) excluded(rel string) bool {
	if e.matcher == nil {
		return false
	}
	ok, err := e.matcher.MatchesOrParentMatches(rel)
	if err != nil {
		e.logger.WithError(err).WithField("path", rel).Debug("Exclude pattern match failed")
		return false
	}
	return ok
}

func sortResults(results []models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ModifiedAt != results[j].ModifiedAt {
			return results[i].ModifiedAt > results[j].ModifiedAt
		}
		return results[i].Path < results[j].Path
	})
}
