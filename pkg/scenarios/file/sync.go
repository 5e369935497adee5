package file

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/finder/logging"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/scenarios"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period after a file event before reloading.
const DefaultDebounce = 100 * time.Millisecond

// Sync keeps a Collection and a scenario file in step: every change to the
// collection is saved, and edits made to the file by other processes are
// loaded back with SetAll.
type Sync struct {
	coll     *scenarios.Collection
	path     string
	debounce time.Duration
	logger   *logrus.Entry
	onReload func(count int)

	mu          sync.Mutex
	known       []models.SearchScenario
	timer       *time.Timer
	watcher     *fsnotify.Watcher
	unsubscribe func()
	done        chan struct{}
}

// SyncOption configures a Sync.
type SyncOption func(*Sync)

// WithDebounce sets the reload debounce interval.
func WithDebounce(d time.Duration) SyncOption {
	return func(s *Sync) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSyncLogger sets the logger.
func WithSyncLogger(logger *logrus.Entry) SyncOption {
	return func(s *Sync) {
		s.logger = logger
	}
}

// OnReload registers a callback invoked after an external edit was loaded.
func OnReload(fn func(count int)) SyncOption {
	return func(s *Sync) {
		s.onReload = fn
	}
}

// NewSync creates a Sync for coll backed by path.
func NewSync(coll *scenarios.Collection, path string, opts ...SyncOption) *Sync {
	s := &Sync{
		coll:     coll,
		path:     path,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("scenario-sync")
	}
	s.logger = s.logger.WithField("file", path)
	return s
}

// Path returns the backing file.
func (s *Sync) Path() string {
	return s.path
}

// Start loads the file into the collection, begins saving changes and
// starts watching the file. It returns once setup is complete; watching
// stops when ctx is cancelled or Close is called.
func (s *Sync) Start(ctx context.Context) error {
	if _, err := FormatFor(s.path); err != nil {
		return err
	}

	loaded, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.known = loaded
	s.mu.Unlock()
	s.coll.SetAll(loaded)

	// The initial callback carries the value just loaded and is skipped.
	s.unsubscribe = s.coll.Subscribe(s.persist)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.unsubscribe()
		return err
	}
	// Watch the directory: atomic saves replace the file's inode.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		s.unsubscribe()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		s.unsubscribe()
		return err
	}
	s.watcher = watcher
	s.done = make(chan struct{})

	s.logger.WithField("count", len(loaded)).Info("Scenario file loaded")

	go s.watch(ctx)
	return nil
}

// Close stops saving and watching.
func (s *Sync) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	return err
}

func (s *Sync) persist(value []models.SearchScenario) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Equal(value, s.known) {
		return
	}
	if err := Save(s.path, value); err != nil {
		s.logger.WithError(err).Error("Failed to save scenarios")
		return
	}
	s.known = value
	s.logger.WithField("count", len(value)).Debug("Scenarios saved")
}

func (s *Sync) watch(ctx context.Context) {
	defer close(s.done)

	target := filepath.Clean(s.path)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			s.logger.Debugf("fsnotify event: op=%v", event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.schedule()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			s.watcher.Close()
			return
		}
	}
}

// schedule reloads after the debounce interval, restarting the interval on
// every event.
func (s *Sync) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.reload)
}

func (s *Sync) reload() {
	// A missing file is usually mid-rename by an editor; keep the current list.
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	// Held across the read so a concurrent save cannot land between the
	// read and the comparison.
	s.mu.Lock()
	loaded, err := Load(s.path)
	if err != nil {
		s.mu.Unlock()
		s.logger.WithError(err).Warn("Ignoring unreadable scenario file")
		return
	}
	if slices.Equal(loaded, s.known) {
		s.mu.Unlock()
		return
	}
	s.known = loaded
	s.mu.Unlock()

	s.logger.WithField("count", len(loaded)).Info("Scenario file changed on disk, reloading")
	s.coll.SetAll(loaded)

	if s.onReload != nil {
		s.onReload(len(loaded))
	}
}
