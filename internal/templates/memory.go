package templates

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// NewMemoryTemplateRepository constructs an in-memory template repository.
func NewMemoryTemplateRepository() TemplateRepository {
	return &memoryTemplateRepository{
		byID: make(map[uuid.UUID]*SectionTemplate),
	}
}

type memoryTemplateRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*SectionTemplate
}

func (m *memoryTemplateRepository) Create(_ context.Context, template *SectionTemplate) (*SectionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneTemplate(template)
	m.byID[cloned.ID] = cloned
	return cloneTemplate(cloned), nil
}

func (m *memoryTemplateRepository) Update(_ context.Context, template *SectionTemplate) (*SectionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[template.ID]; !ok {
		return nil, &NotFoundError{Resource: "section_template", Key: template.ID.String()}
	}
	cloned := cloneTemplate(template)
	m.byID[cloned.ID] = cloned
	return cloneTemplate(cloned), nil
}

func (m *memoryTemplateRepository) GetByID(_ context.Context, id uuid.UUID) (*SectionTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "section_template", Key: id.String()}
	}
	return cloneTemplate(record), nil
}

func (m *memoryTemplateRepository) ListByTenant(_ context.Context, tenantID string) ([]*SectionTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*SectionTemplate, 0)
	for _, record := range m.byID {
		if record.TenantID == tenantID {
			out = append(out, cloneTemplate(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (m *memoryTemplateRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return &NotFoundError{Resource: "section_template", Key: id.String()}
	}
	delete(m.byID, id)
	return nil
}

func cloneTemplate(src *SectionTemplate) *SectionTemplate {
	if src == nil {
		return nil
	}
	cloned := *src
	cloned.Snippets = maps.Clone(src.Snippets)
	cloned.BlockTemplates = maps.Clone(src.BlockTemplates)
	cloned.Schema = deepCopy(src.Schema)
	cloned.Presets = deepCopy(src.Presets)
	cloned.Settings = deepCopy(src.Settings)
	return &cloned
}

// deepCopy round-trips through JSON; every value held by a template is
// JSON-shaped.
func deepCopy[T any](value T) T {
	encoded, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var out T
	if err := json.Unmarshal(encoded, &out); err != nil {
		return value
	}
	return out
}
