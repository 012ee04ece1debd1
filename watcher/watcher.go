// Package watcher reloads files when they change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor or copy produces into one reload.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc reloads path. Returning an error keeps whatever was loaded before.
type ReloadFunc func(path string) error

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

func WithLogger(l *zap.Logger) Option { return func(w *Watcher) { w.logger = l } }

// Watcher calls a ReloadFunc after a watched file is written, created or replaced.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	targets map[string]ReloadFunc
	dirs    map[string]bool
	timers  map[string]*time.Timer

	reloadMu sync.Mutex
}

// New creates a watcher. Call Add for each file, then Run.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
		targets:  make(map[string]ReloadFunc),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add registers reload for path. The parent directory is watched so files replaced by
// rename are still seen.
func (w *Watcher) Add(path string, reload ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.targets[abs] = reload
	w.logger.Info("watching file", zap.String("path", abs))
	return nil
}

// Run dispatches events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reload, ok := w.targets[path]
	if !ok {
		return
	}
	if t, pending := w.timers[path]; pending {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.fire(path, reload)
	})
}

func (w *Watcher) fire(path string, reload ReloadFunc) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	start := time.Now()
	if err := reload(path); err != nil {
		w.logger.Error("reload failed, keeping previous version", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("reloaded", zap.String("path", path), zap.Duration("took", time.Since(start)))
}

// Close stops watching and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	return w.fsw.Close()
}
