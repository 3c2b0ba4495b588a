package templates

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

// NewTemplateRepository creates the go-repository-bun repository for section templates.
func NewTemplateRepository(db *bun.DB) repository.Repository[*SectionTemplate] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*SectionTemplate]{
		NewRecord:          func() *SectionTemplate { return &SectionTemplate{} },
		GetID:              func(t *SectionTemplate) uuid.UUID { return t.ID },
		SetID:              func(t *SectionTemplate, id uuid.UUID) { t.ID = id },
		GetIdentifier:      func() string { return "section_type" },
		GetIdentifierValue: func(t *SectionTemplate) string { return t.Type },
	})
}

// BunTemplateRepository implements TemplateRepository with optional caching.
type BunTemplateRepository struct {
	repo repository.Repository[*SectionTemplate]
}

// NewBunTemplateRepository creates a template repository without caching.
func NewBunTemplateRepository(db *bun.DB) *BunTemplateRepository {
	return NewBunTemplateRepositoryWithCache(db, nil, nil)
}

// NewBunTemplateRepositoryWithCache creates a template repository with caching support.
func NewBunTemplateRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunTemplateRepository {
	base := NewTemplateRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunTemplateRepository{repo: base}
}

func (r *BunTemplateRepository) Create(ctx context.Context, template *SectionTemplate) (*SectionTemplate, error) {
	record, err := r.repo.Create(ctx, template)
	if err != nil {
		return nil, fmt.Errorf("section template repository error: %w", err)
	}
	return record, nil
}

func (r *BunTemplateRepository) Update(ctx context.Context, template *SectionTemplate) (*SectionTemplate, error) {
	record, err := r.repo.Update(ctx, template)
	if err != nil {
		return nil, mapRepositoryError(err, "section_template", template.ID.String())
	}
	return record, nil
}

func (r *BunTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*SectionTemplate, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "section_template", id.String())
	}
	return record, nil
}

func (r *BunTemplateRepository) ListByTenant(ctx context.Context, tenantID string) ([]*SectionTemplate, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.tenant_id = ?", tenantID).Order("section_type ASC")
	}))
	return records, err
}

func (r *BunTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, &SectionTemplate{ID: id}); err != nil {
		return mapRepositoryError(err, "section_template", id.String())
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
