package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// FileWatcher watches a set of stack documents and calls back after they
// change. Rapid events are debounced into one call.
//
// Directories are watched rather than the files themselves so that editors
// which replace a file by renaming still trigger a reload.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *Debouncer

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	running bool
}

// NewFileWatcher creates a watcher with the given debounce interval. A zero
// interval uses DefaultDebounceInterval.
func NewFileWatcher(interval time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default().With("component", "source.watcher")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		debounce: NewDebouncer(interval, nil),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// SetFiles replaces the watched set. Directories no longer needed are
// released.
func (fw *FileWatcher) SetFiles(paths []string) error {
	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", p, err)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	for dir := range dirs {
		if fw.dirs[dir] {
			continue
		}
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		fw.logger.Debug("watching directory", "path", dir)
	}
	for dir := range fw.dirs {
		if !dirs[dir] {
			_ = fw.watcher.Remove(dir)
		}
	}

	fw.files = files
	fw.dirs = dirs
	return nil
}

// Watch runs until ctx is cancelled, calling onChange with the watched
// files touched by each debounced burst of events. Errors from onChange are
// logged.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func(changed []string) error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	n := len(fw.files)
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
	}()

	fw.debounce.setFlush(func(changed []string) {
		if err := onChange(changed); err != nil {
			fw.logger.Error("stack reload failed", "error", err)
		}
	})
	fw.logger.Info("file watcher started", "files", n)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if abs, ok := fw.relevant(event); ok {
				fw.logger.Debug("file event detected", "path", abs, "op", event.Op.String())
				fw.debounce.Add(abs)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

// Close stops pending callbacks and releases the underlying watcher.
func (fw *FileWatcher) Close() error {
	fw.debounce.Stop()
	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// relevant returns the absolute path of event when it touches a watched
// file. Permission changes are ignored.
func (fw *FileWatcher) relevant(event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	return abs, fw.files[abs]
}

// Debouncer gathers the paths of a burst of events and hands them to flush
// once the interval passes without a new one.
type Debouncer struct {
	interval time.Duration
	flush    func(paths []string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

// NewDebouncer creates a debouncer. flush runs on its own goroutine and
// receives the paths sorted.
func NewDebouncer(interval time.Duration, flush func(paths []string)) *Debouncer {
	return &Debouncer{interval: interval, flush: flush, pending: make(map[string]struct{})}
}

func (d *Debouncer) setFlush(flush func(paths []string)) {
	d.mu.Lock()
	d.flush = flush
	d.mu.Unlock()
}

// Add records an event on path and restarts the quiet period.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	flush := d.flush
	d.mu.Unlock()

	sort.Strings(paths)
	if flush != nil {
		flush(paths)
	}
}

// Stop cancels the pending flush. Later events are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
