package snippets_test

import (
	"context"
	"testing"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/pkg/testsupport"
)

func newBunDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	bunDB.SetMaxOpenConns(1)

	if _, err := bunDB.NewCreateTable().Model((*snippets.Snippet)(nil)).IfNotExists().Exec(context.Background()); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return bunDB
}

func TestSnippetService_WithBun(t *testing.T) {
	ctx := context.Background()
	svc := snippets.NewService(snippets.NewBunSnippetRepository(newBunDB(t)))

	first, err := svc.Put(ctx, snippets.PutInput{TenantID: "bun-tenant", Key: "hero-title", Markup: "<h1>{{ title }}</h1>"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if first.Outcome != snippets.OutcomeCreated {
		t.Fatalf("expected created, got %s", first.Outcome)
	}

	second, err := svc.Put(ctx, snippets.PutInput{TenantID: "bun-tenant", Key: "hero-title", Markup: "<h2>{{ title }}</h2>"})
	if err != nil {
		t.Fatalf("put collision: %v", err)
	}
	if second.Snippet.Key != "hero-title-1" {
		t.Fatalf("expected hero-title-1, got %s", second.Snippet.Key)
	}

	again, err := svc.Put(ctx, snippets.PutInput{TenantID: "bun-tenant", Key: "hero-title", Markup: "<h1>{{ title }}</h1>"})
	if err != nil {
		t.Fatalf("put identical: %v", err)
	}
	if again.Outcome != snippets.OutcomeUnchanged {
		t.Fatalf("expected unchanged, got %s", again.Outcome)
	}

	records, err := svc.List(ctx, "bun-tenant")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}

	markup, ok := svc.Resolve(ctx, "bun-tenant", "hero-title-1")
	if !ok || markup != "<h2>{{ title }}</h2>" {
		t.Fatalf("unexpected resolve %q %v", markup, ok)
	}
	if _, ok := svc.Resolve(ctx, "bun-tenant", "missing"); ok {
		t.Fatal("expected missing snippet to resolve false")
	}
}

func TestBunSnippetRepository_CachedReads(t *testing.T) {
	ctx := context.Background()
	bunDB := newBunDB(t)

	writer := snippets.NewService(snippets.NewBunSnippetRepository(bunDB))
	created, err := writer.Put(ctx, snippets.PutInput{TenantID: "cache-tenant", Key: "footer", Markup: "<footer></footer>"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	cacheCfg := repocache.DefaultConfig()
	cacheCfg.TTL = time.Minute
	cacheSvc, err := repocache.NewCacheService(cacheCfg)
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	cached := snippets.NewBunSnippetRepositoryWithCache(bunDB, cacheSvc, repocache.NewDefaultKeySerializer())

	for i := 0; i < 2; i++ {
		record, err := cached.GetByID(ctx, created.Snippet.ID)
		if err != nil {
			t.Fatalf("cached get %d: %v", i, err)
		}
		if record.Markup != "<footer></footer>" {
			t.Fatalf("unexpected markup %q", record.Markup)
		}
	}
}
