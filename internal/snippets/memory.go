package snippets

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemorySnippetRepository is an in-memory SnippetRepository.
type MemorySnippetRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*Snippet
}

// NewMemorySnippetRepository returns an empty repository.
func NewMemorySnippetRepository() *MemorySnippetRepository {
	return &MemorySnippetRepository{byID: make(map[uuid.UUID]*Snippet)}
}

func (r *MemorySnippetRepository) Create(_ context.Context, snippet *Snippet) (*Snippet, error) {
	if snippet == nil {
		return nil, nil
	}
	cloned := cloneSnippet(snippet)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[cloned.ID] = cloned
	return cloneSnippet(cloned), nil
}

func (r *MemorySnippetRepository) Update(_ context.Context, snippet *Snippet) (*Snippet, error) {
	if snippet == nil {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[snippet.ID]; !ok {
		return nil, &NotFoundError{Resource: "snippet", Key: snippet.ID.String()}
	}
	cloned := cloneSnippet(snippet)
	r.byID[cloned.ID] = cloned
	return cloneSnippet(cloned), nil
}

func (r *MemorySnippetRepository) GetByID(_ context.Context, id uuid.UUID) (*Snippet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "snippet", Key: id.String()}
	}
	return cloneSnippet(record), nil
}

func (r *MemorySnippetRepository) ListByTenant(_ context.Context, tenantID string) ([]*Snippet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Snippet, 0)
	for _, record := range r.byID {
		if record.TenantID == tenantID {
			out = append(out, cloneSnippet(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *MemorySnippetRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return &NotFoundError{Resource: "snippet", Key: id.String()}
	}
	delete(r.byID, id)
	return nil
}

func cloneSnippet(src *Snippet) *Snippet {
	if src == nil {
		return nil
	}
	cloned := *src
	return &cloned
}
