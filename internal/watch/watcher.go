package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"showkeeper/internal/logging"
)

// Trigger is invoked after the watched tree settles.
type Trigger func(ctx context.Context) error

// Watcher debounces filesystem changes under a set of roots.
type Watcher struct {
	logger *slog.Logger
	opts   Options
	fs     *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}

	closeOnce sync.Once
	closeErr  error
}

// New creates a watcher and registers every directory below opts.Roots.
func New(opts Options, logger *slog.Logger) (*Watcher, error) {
	opts.setDefaults()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		logger:  logging.NewComponentLogger(logger, "watch"),
		opts:    opts,
		fs:      fsw,
		watched: make(map[string]struct{}),
	}
	for _, root := range opts.Roots {
		if _, err := os.Stat(root); err != nil {
			logging.WarnWithContext(w.logger, "watch root unavailable", "watch_root_missing",
				logging.String("path", root),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "create the folder or fix the show's folders setting"),
				logging.String(logging.FieldImpact, "changes under this folder will not trigger a scan"),
			)
			continue
		}
		w.watchTree(root)
	}
	return w, nil
}

// Watched returns the number of directories currently registered.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Close releases the underlying watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

func (w *Watcher) watchTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("skipping unreadable path", logging.String("path", path), logging.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.opts.shouldIgnore(path) {
			return filepath.SkipDir
		}
		w.mu.Lock()
		_, known := w.watched[path]
		w.mu.Unlock()
		if known {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("failed to add watch",
				logging.String(logging.FieldEventType, "watch_add_failed"),
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches"),
			)
			return nil
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for dir := range w.watched {
		if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
			delete(w.watched, dir)
		}
	}
}

// Run blocks until ctx is cancelled, calling trigger once the tree has been
// quiet for the debounce interval after a change. Changes made while the
// trigger runs are treated as its own and do not re-arm the timer.
func (w *Watcher) Run(ctx context.Context, trigger Trigger) error {
	defer w.Close()

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Info("watching for changes",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.Int("directories", w.Watched()),
		logging.Duration("debounce", w.opts.Debounce),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watch error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some changes may be missed until the next scan"),
			)
		case <-timer.C:
			w.fire(ctx, trigger)
			w.drain()
		}
	}
}

// handle registers new directories and reports whether event should arm the
// debounce timer.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if w.opts.shouldIgnore(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchTree(event.Name)
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(event.Name)
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	w.logger.Debug("change observed",
		logging.String("path", event.Name),
		logging.String("op", event.Op.String()),
	)
	return true
}

func (w *Watcher) fire(ctx context.Context, trigger Trigger) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	w.logger.Info("changes settled, reconciling", logging.String(logging.FieldEventType, "watch_triggered"))
	if err := trigger(ctx); err != nil {
		logging.WarnWithContext(w.logger, "triggered reconcile failed", "watch_trigger_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "library left unchanged until the next change"),
		)
		return
	}
	w.logger.Debug("triggered reconcile finished", logging.Duration("elapsed", time.Since(started)))
}

// drain consumes events queued while the trigger ran. New directories are
// still registered so season folders created by a run stay watched.
func (w *Watcher) drain() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		default:
			return
		}
	}
}
