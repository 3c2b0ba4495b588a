package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// DefaultDebounce groups the events of one editor save into a single reload.
const DefaultDebounce = 150 * time.Millisecond

// InvalidateFunc is called once per reloaded burst with the tenant id.
type InvalidateFunc func(tenantID string)

// Option configures a SnippetWatcher.
type Option func(*SnippetWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *SnippetWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *SnippetWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// SnippetWatcher mirrors a directory of snippet files into the snippet store
// of one tenant.
type SnippetWatcher struct {
	dir        string
	tenantID   string
	store      snippets.Service
	invalidate InvalidateFunc
	debounce   time.Duration
	logger     interfaces.Logger

	watcher *fsnotify.Watcher

	mu   sync.Mutex
	keys map[string]string
}

// New loads every snippet under dir and starts watching it. Call Run to
// process changes.
func New(ctx context.Context, dir, tenantID string, store snippets.Service, invalidate InvalidateFunc, opts ...Option) (*SnippetWatcher, error) {
	if store == nil {
		return nil, errors.New("watch: snippet store required")
	}
	w := &SnippetWatcher{
		dir:        filepath.Clean(dir),
		tenantID:   tenantID,
		store:      store,
		invalidate: invalidate,
		debounce:   DefaultDebounce,
		logger:     logging.NoOp(),
		keys:       make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.logger = logging.WithFields(logging.WithTenant(w.logger, tenantID), map[string]any{"dir": w.dir})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w.watcher = watcher

	var files []string
	err = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if snippets.IsSource(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch: %s: %w", w.dir, err)
	}

	sort.Strings(files)
	for _, path := range files {
		if err := w.load(ctx, path); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}
	w.logger.Info("watch.snippets.started", "snippets", len(files))
	return w, nil
}

// Snippets loads dir into the tenant snippet store and keeps it in sync
// until ctx is done.
func Snippets(ctx context.Context, dir, tenantID string, store snippets.Service, invalidate InvalidateFunc, opts ...Option) error {
	w, err := New(ctx, dir, tenantID, store, invalidate, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Keys returns the snippet key loaded for every watched file.
func (w *SnippetWatcher) Keys() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.keys))
	for path, key := range w.keys {
		out[path] = key
	}
	return out
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *SnippetWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
					continue
				}
			}
			if !snippets.IsSource(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.flush(ctx, pending)
			pending = make(map[string]struct{})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch.snippets.error", "error", err)
		}
	}
}

func (w *SnippetWatcher) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	changed := 0
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if w.remove(ctx, path) {
				changed++
			}
			continue
		}
		if err := w.load(ctx, path); err != nil {
			w.logger.Warn("watch.snippets.reload_failed", "path", path, "error", err)
			continue
		}
		changed++
	}
	if changed == 0 {
		return
	}
	if w.invalidate != nil {
		w.invalidate(w.tenantID)
	}
	w.logger.Info("watch.snippets.reloaded", "changed", changed)
}

func (w *SnippetWatcher) load(ctx context.Context, path string) error {
	key, err := snippets.LoadFile(ctx, w.store, path, w.tenantID)
	if err != nil {
		return err
	}
	w.mu.Lock()
	previous, had := w.keys[path]
	w.keys[path] = key
	w.mu.Unlock()
	if had && previous != key {
		// the front matter renamed the snippet
		if err := w.store.Delete(ctx, w.tenantID, previous); err != nil && !errors.Is(err, snippets.ErrSnippetNotFound) {
			w.logger.Warn("watch.snippets.delete_failed", "key", previous, "error", err)
		}
	}
	w.logger.Debug("watch.snippets.loaded", "path", path, "key", key)
	return nil
}

func (w *SnippetWatcher) remove(ctx context.Context, path string) bool {
	w.mu.Lock()
	key, ok := w.keys[path]
	delete(w.keys, path)
	w.mu.Unlock()
	if !ok {
		return false
	}
	if err := w.store.Delete(ctx, w.tenantID, key); err != nil && !errors.Is(err, snippets.ErrSnippetNotFound) {
		w.logger.Warn("watch.snippets.delete_failed", "key", key, "error", err)
		return false
	}
	w.logger.Debug("watch.snippets.removed", "path", path, "key", key)
	return true
}
