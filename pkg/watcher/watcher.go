// Package watcher reruns an analysis when files under the watched roots
// change. Events are coalesced over a debounce window so that a burst of
// saves produces one rerun.
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/winnow/pkg/discover"
	"github.com/jmylchreest/winnow/pkg/logging"
)

// DefaultDebounceDelay is used when Config.DebounceDelay is zero.
const DefaultDebounceDelay = 500 * time.Millisecond

// Config selects what to watch.
type Config struct {
	Paths         []string
	DebounceDelay time.Duration
	// FileFilter drops events for paths it rejects. Nil accepts all.
	FileFilter func(path string) bool
	Logger     *slog.Logger
}

// Handler receives each debounced batch of changes, keyed by path.
type Handler interface {
	OnChanges(files map[string]fsnotify.Op)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(files map[string]fsnotify.Op)

// OnChanges calls f.
func (f HandlerFunc) OnChanges(files map[string]fsnotify.Op) {
	f(files)
}

// Watcher watches directory trees, skipping the directories the discover
// package ignores.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	config   Config
	logger   *slog.Logger
	handlers []Handler
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu          sync.Mutex
	pending     map[string]fsnotify.Op
	timerActive bool
	roots       map[string]*discover.Matcher
	dirsWatched int
	batches     int
}

// New creates a Watcher. Nothing is watched until Start.
func New(config Config, handlers ...Handler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Watcher{
		fsnotify: fsWatcher,
		config:   config,
		logger:   logger,
		handlers: handlers,
		stop:     make(chan struct{}),
		pending:  make(map[string]fsnotify.Op),
		roots:    make(map[string]*discover.Matcher),
	}, nil
}

// Start adds every non-ignored directory under the configured paths and
// begins processing events. A path naming a file watches its directory.
func (w *Watcher) Start() error {
	paths := w.config.Paths
	if len(paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		paths = []string{cwd}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			root = filepath.Dir(root)
		}
		root = filepath.Clean(root)
		matcher, err := discover.NewMatcher(root)
		if err != nil {
			return err
		}
		w.roots[root] = matcher

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if w.skipDir(path) {
				return filepath.SkipDir
			}
			w.addDir(path)
			return nil
		})
		if err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("watching for changes", "dirs", w.dirsWatched, "paths", paths, "debounce", w.config.DebounceDelay)
	return nil
}

// Stop ends event processing, dropping any pending batch.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	return w.fsnotify.Close()
}

// Stats is a snapshot of the watcher's state.
type Stats struct {
	DirsWatched  int
	PendingFiles int
	Batches      int
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		DirsWatched:  w.dirsWatched,
		PendingFiles: len(w.pending),
		Batches:      w.batches,
	}
}

func (w *Watcher) addDir(path string) {
	if err := w.fsnotify.Add(path); err != nil {
		w.logger.Warn("cannot watch directory", "path", path, "error", err)
		return
	}
	w.mu.Lock()
	w.dirsWatched++
	w.mu.Unlock()
}

// skipDir reports whether a directory is ignored by the rules of the root
// containing it.
func (w *Watcher) skipDir(path string) bool {
	for root, m := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if rel != "." && m.Ignored(filepath.ToSlash(rel), true) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skipDir(event.Name) {
				w.addDir(event.Name)
				w.logger.Debug("watching new directory", "path", event.Name)
			}
			return
		}
	}

	name := filepath.Base(event.Name)
	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp") {
		return
	}
	if w.config.FileFilter != nil && !w.config.FileFilter(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
		w.queueChange(event.Name, event.Op)
	}
}

// queueChange records a change and arms the debounce timer if it is not
// already running.
func (w *Watcher) queueChange(path string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] |= op
	if w.timerActive {
		return
	}
	w.timerActive = true
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-time.After(w.config.DebounceDelay):
			w.flushPending()
		case <-w.stop:
		}
	}()
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.timerActive = false
	if len(pending) > 0 {
		w.batches++
	}
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	w.logger.Debug("processing file changes", "files", len(pending))
	for _, h := range w.handlers {
		h.OnChanges(pending)
	}
}

// IsRemove reports whether op removed the file.
func IsRemove(op fsnotify.Op) bool {
	return op&fsnotify.Remove != 0
}
