package snippets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SnippetRepository exposes persistence operations for snippets.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *Snippet) (*Snippet, error)
	Update(ctx context.Context, snippet *Snippet) (*Snippet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Snippet, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Snippet, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotFoundError is returned when a snippet cannot be located.
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
