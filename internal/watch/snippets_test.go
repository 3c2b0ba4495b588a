package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/watch"
)

type invalidations struct {
	mu    sync.Mutex
	calls []string
}

func (i *invalidations) record(tenantID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, tenantID)
}

func (i *invalidations) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSnippetWatcherMirrorsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "card.liquid"), "<div>card v1</div>")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := snippets.NewService(snippets.NewMemorySnippetRepository())
	calls := &invalidations{}
	w, err := watch.New(ctx, dir, "shop-1", store, calls.record, watch.WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if source, ok := store.Resolve(ctx, "shop-1", "card"); !ok || source != "<div>card v1</div>" {
		t.Fatalf("expected initial load, got %q %v", source, ok)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "badge.html"), "---\nkey: promo-badge\n---\n<em>new</em>")
	eventually(t, "new snippet", func() bool {
		source, ok := store.Resolve(ctx, "shop-1", "promo-badge")
		return ok && source == "<em>new</em>"
	})

	writeFile(t, filepath.Join(dir, "card.liquid"), "<div>card v2</div>")
	eventually(t, "edited snippet", func() bool {
		source, _ := store.Resolve(ctx, "shop-1", "card")
		return source == "<div>card v2</div>"
	})

	if err := os.Remove(filepath.Join(dir, "card.liquid")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	eventually(t, "removed snippet", func() bool {
		_, ok := store.Resolve(ctx, "shop-1", "card")
		return !ok
	})

	if calls.count() < 3 {
		t.Fatalf("expected an invalidation per burst, got %d", calls.count())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestSnippetWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := snippets.NewService(snippets.NewMemorySnippetRepository())
	calls := &invalidations{}
	w, err := watch.New(ctx, dir, "shop-1", store, calls.record, watch.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	go func() { _ = w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "keep.snippet"), "kept")
	eventually(t, "snippet load", func() bool {
		_, ok := store.Resolve(ctx, "shop-1", "keep")
		return ok
	})
	if _, ok := store.Resolve(ctx, "shop-1", "notes"); ok {
		t.Fatalf("non-snippet files must be ignored")
	}
	if keys := w.Keys(); len(keys) != 1 {
		t.Fatalf("expected one watched snippet, got %v", keys)
	}
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	store := snippets.NewService(snippets.NewMemorySnippetRepository())
	if _, err := watch.New(context.Background(), filepath.Join(t.TempDir(), "missing"), "shop-1", store, nil); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
