package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/finder/logging"
	"github.com/sirupsen/logrus"
)

// ConfigWatcher watches configuration directories for changes to finder
// configuration files and calls onReload after a quiet period.
type ConfigWatcher struct {
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	logger       *logrus.Entry
	onReload     func(file string)
	targetToLink map[string]string // symlink target -> link path

	mu    sync.Mutex
	timer *time.Timer
	last  string
}

// NewConfigWatcher watches dirs (typically the global config directory and
// the project directory). Missing directories are skipped. Symlinked
// config files have their target directories watched too, since fsnotify
// does not follow links.
func NewConfigWatcher(dirs []string, debounce time.Duration, onReload func(file string)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("config-watcher")
	watched := make(map[string]bool)
	targetToLink := make(map[string]string)

	add := func(dir string) {
		if dir == "" || watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			logger.WithError(err).WithField("dir", dir).Debug("Not watching directory")
			return
		}
		watched[dir] = true
	}

	for _, dir := range dirs {
		add(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !IsConfigFile(entry.Name()) || entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			link := filepath.Join(dir, entry.Name())
			target, err := filepath.EvalSymlinks(link)
			if err != nil {
				logger.WithError(err).Warnf("Failed to resolve symlink %s", entry.Name())
				continue
			}
			targetToLink[target] = link
			add(filepath.Dir(target))
		}
	}

	if len(watched) == 0 {
		watcher.Close()
		return nil, os.ErrNotExist
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &ConfigWatcher{
		watcher:      watcher,
		debounce:     debounce,
		logger:       logger,
		onReload:     onReload,
		targetToLink: targetToLink,
	}, nil
}

// IsConfigFile reports whether name is a finder configuration file.
func IsConfigFile(name string) bool {
	base := filepath.Base(name)
	trimmed := strings.TrimPrefix(base, ".")
	if !strings.HasPrefix(trimmed, "finder.") {
		return false
	}
	switch filepath.Ext(base) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}

// Start processes events until ctx is cancelled or Close is called.
func (w *ConfigWatcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := event.Name
			if link, ok := w.targetToLink[name]; ok {
				name = link
			}
			if !IsConfigFile(name) {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			w.schedule(name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.Close()
			return
		}
	}
}

// schedule restarts the debounce timer; only the last file of a burst is
// reported.
func (w *ConfigWatcher) schedule(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = file
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *ConfigWatcher) fire() {
	w.mu.Lock()
	file := w.last
	w.mu.Unlock()

	w.logger.Infof("Config changed: %s", filepath.Base(file))
	if w.onReload != nil {
		w.onReload(file)
	}
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
