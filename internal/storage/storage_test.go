package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-sections/internal/runtimeconfig"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
)

func TestOpenRejectsMemoryAndUnknownDrivers(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, runtimeconfig.StorageConfig{Driver: ""}); !errors.Is(err, ErrMemoryDriver) {
		t.Fatalf("expected ErrMemoryDriver, got %v", err)
	}
	if _, err := Open(ctx, runtimeconfig.StorageConfig{Driver: "mysql", DSN: "x"}); !errors.Is(err, ErrDriverUnknown) {
		t.Fatalf("expected ErrDriverUnknown, got %v", err)
	}
}

func TestDialectForDrivers(t *testing.T) {
	cases := map[string]dialect.Name{
		runtimeconfig.DriverSQLite3:  dialect.SQLite,
		runtimeconfig.DriverSQLite:   dialect.SQLite,
		runtimeconfig.DriverPostgres: dialect.PG,
	}
	for driver, want := range cases {
		got, err := dialectFor(driver)
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		if got.Name() != want {
			t.Fatalf("%s: expected %s dialect, got %s", driver, want, got.Name())
		}
	}
}

func TestEnsureSchemaOnBothSQLiteDrivers(t *testing.T) {
	for i, driver := range []string{runtimeconfig.DriverSQLite3, runtimeconfig.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			dsn := fmt.Sprintf("file:storage_%s_%d?mode=memory&cache=shared", driver, i)
			db, err := Open(ctx, runtimeconfig.StorageConfig{Driver: driver, DSN: dsn})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })

			if err := EnsureSchema(ctx, db); err != nil {
				t.Fatalf("ensure schema: %v", err)
			}
			if err := EnsureSchema(ctx, db); err != nil {
				t.Fatalf("ensure schema twice: %v", err)
			}

			svc := templates.NewService(templates.NewBunTemplateRepository(db),
				templates.WithSnippetStore(snippets.NewService(snippets.NewBunSnippetRepository(db))))
			result, err := svc.Save(ctx, templates.SaveInput{TenantID: "shop-1", Candidate: templates.Candidate{
				Type:       "hero",
				Schema:     map[string]any{"settings": []any{map[string]any{"id": "heading", "type": "text", "label": "Heading"}}},
				Markup:     "<h1>hi</h1>",
				Stylesheet: "",
				Snippets:   map[string]any{"button": "<a>go</a>"},
			}})
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if result.Outcome != templates.OutcomeCreated || len(result.Snippets) != 1 {
				t.Fatalf("unexpected result %+v", result)
			}
		})
	}
}
