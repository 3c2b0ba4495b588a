package snippets

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewSnippetRepository creates the go-repository-bun repository for snippets.
func NewSnippetRepository(db *bun.DB) repository.Repository[*Snippet] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Snippet]{
		NewRecord:          func() *Snippet { return &Snippet{} },
		GetID:              func(s *Snippet) uuid.UUID { return s.ID },
		SetID:              func(s *Snippet, id uuid.UUID) { s.ID = id },
		GetIdentifier:      func() string { return "snippet_key" },
		GetIdentifierValue: func(s *Snippet) string { return s.Key },
	})
}

// BunSnippetRepository implements SnippetRepository with optional caching.
type BunSnippetRepository struct {
	repo repository.Repository[*Snippet]
}

// NewBunSnippetRepository creates a snippet repository without caching.
func NewBunSnippetRepository(db *bun.DB) *BunSnippetRepository {
	return NewBunSnippetRepositoryWithCache(db, nil, nil)
}

// NewBunSnippetRepositoryWithCache creates a snippet repository with caching support.
func NewBunSnippetRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunSnippetRepository {
	base := NewSnippetRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunSnippetRepository{repo: base}
}

func (r *BunSnippetRepository) Create(ctx context.Context, snippet *Snippet) (*Snippet, error) {
	record, err := r.repo.Create(ctx, snippet)
	if err != nil {
		return nil, fmt.Errorf("snippet repository error: %w", err)
	}
	return record, nil
}

func (r *BunSnippetRepository) Update(ctx context.Context, snippet *Snippet) (*Snippet, error) {
	record, err := r.repo.Update(ctx, snippet)
	if err != nil {
		return nil, mapRepositoryError(err, "snippet", snippet.ID.String())
	}
	return record, nil
}

func (r *BunSnippetRepository) GetByID(ctx context.Context, id uuid.UUID) (*Snippet, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "snippet", id.String())
	}
	return record, nil
}

func (r *BunSnippetRepository) ListByTenant(ctx context.Context, tenantID string) ([]*Snippet, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.tenant_id = ?", tenantID).Order("snippet_key ASC")
	}))
	return records, err
}

func (r *BunSnippetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, &Snippet{ID: id}); err != nil {
		return mapRepositoryError(err, "snippet", id.String())
	}
	return nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}
