package render_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-sections/internal/render"
)

func TestInterpreterCompileCachesBySource(t *testing.T) {
	interpreter := render.NewInterpreter("shop-1", nil)
	first, err := interpreter.Compile("{{ a }}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := interpreter.Compile("{{ a }}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if first != second || interpreter.Compiled() != 1 {
		t.Fatalf("expected cached template, compiled=%d", interpreter.Compiled())
	}
	if _, err := interpreter.Compile("{% if %}"); err == nil {
		t.Fatalf("expected compile error")
	}
	if interpreter.Compiled() != 1 {
		t.Fatalf("failed compiles must not be cached")
	}
}

func TestInterpretersRegistry(t *testing.T) {
	built := 0
	registry := render.NewInterpreters(func(_ context.Context, tenantID string) *render.Interpreter {
		built++
		return render.NewInterpreter(tenantID, nil)
	})
	ctx := context.Background()

	a := registry.Get(ctx, "a")
	if registry.Get(ctx, "a") != a || built != 1 {
		t.Fatalf("expected interpreter reuse, built=%d", built)
	}
	if a.TenantID() != "a" {
		t.Fatalf("unexpected tenant %s", a.TenantID())
	}
	registry.Get(ctx, "b")
	if registry.Len() != 2 {
		t.Fatalf("expected two interpreters, got %d", registry.Len())
	}

	registry.Invalidate("a")
	if registry.Get(ctx, "a") == a || built != 3 {
		t.Fatalf("expected rebuild after invalidate, built=%d", built)
	}

	registry.Reset()
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry after reset")
	}
}

func TestInterpreterGlobals(t *testing.T) {
	interpreter := render.NewInterpreter("shop-1", map[string]any{"shop": map[string]any{"name": "Acme"}})
	tpl, err := interpreter.Compile("{{ shop.name }}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := tpl.Execute(nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Acme" {
		t.Fatalf("expected global, got %q", out)
	}
}

func TestInterpretersBuildOutsideRegistryLock(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var slowBuilds atomic.Int32
	registry := render.NewInterpreters(func(_ context.Context, tenantID string) *render.Interpreter {
		if tenantID == "slow" && slowBuilds.Add(1) == 1 {
			close(started)
			<-release
		}
		return render.NewInterpreter(tenantID, nil)
	})
	ctx := context.Background()

	done := make(chan *render.Interpreter)
	go func() {
		done <- registry.Get(ctx, "slow")
	}()
	<-started

	fast := make(chan struct{})
	go func() {
		registry.Get(ctx, "fast")
		close(fast)
	}()
	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatalf("a slow tenant build blocked another tenant")
	}

	registry.Invalidate("slow")
	close(release)
	stale := <-done
	if registry.Get(ctx, "slow") == stale {
		t.Fatalf("a build that raced an invalidation must not be stored")
	}
}
