package storage

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
)

type index struct {
	model   any
	name    string
	columns []string
}

// Models lists the bun models persisted by the module.
func Models() []any {
	return []any{
		(*templates.SectionTemplate)(nil),
		(*snippets.Snippet)(nil),
	}
}

var indexes = []index{
	{model: (*templates.SectionTemplate)(nil), name: "section_templates_tenant_type_idx", columns: []string{"tenant_id", "section_type"}},
	{model: (*snippets.Snippet)(nil), name: "section_snippets_tenant_key_idx", columns: []string{"tenant_id", "snippet_key"}},
}

// EnsureSchema creates the tables and unique lookup indexes when missing. It
// is safe to run on every start.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Unique().
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("storage: create index %s: %w", idx.name, err)
		}
	}
	return nil
}
