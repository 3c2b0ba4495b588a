package templates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// TemplateRepository exposes persistence operations for section templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *SectionTemplate) (*SectionTemplate, error)
	Update(ctx context.Context, template *SectionTemplate) (*SectionTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*SectionTemplate, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*SectionTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotFoundError is returned when a template cannot be located.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}
