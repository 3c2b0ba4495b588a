package interfaces

import (
	"context"
	"time"
)

// SnippetResolver returns the template source stored for a tenant snippet key.
// A missing snippet is reported with ok=false and is never an error.
type SnippetResolver interface {
	Resolve(ctx context.Context, tenantID, key string) (source string, ok bool)
}

// Shop describes the tenant identity exposed to templates as the `shop` global.
type Shop struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
	Currency string `json:"currency,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// TenantDirectory resolves tenant identity for render globals. Hosts that do
// not provide one get a shop named after the tenant id.
type TenantDirectory interface {
	Shop(ctx context.Context, tenantID string) (Shop, error)
}

// RenderMetrics records render timings and degraded outcomes.
type RenderMetrics interface {
	ObserveRender(kind, sectionType, status string, duration time.Duration)
	IncrementFallback(kind, sectionType, reason string)
}

// NoopRenderMetrics discards every observation.
type NoopRenderMetrics struct{}

func (NoopRenderMetrics) ObserveRender(string, string, string, time.Duration) {}
func (NoopRenderMetrics) IncrementFallback(string, string, string)           {}
