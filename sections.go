package sections

import (
	"context"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-sections/internal/commands/templatescmd"
	"github.com/goliatone/go-sections/internal/cssscope"
	"github.com/goliatone/go-sections/internal/di"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// TemplateService exports the template store contract.
type TemplateService = templates.Service

// SnippetService exports the snippet store contract.
type SnippetService = snippets.Service

// Engine exports the render engine.
type Engine = render.Engine

type (
	SectionTemplate = templates.SectionTemplate
	Candidate       = templates.Candidate
	ValidationError = templates.ValidationError
	SectionInstance = render.SectionInstance
	BlockInstance   = render.BlockInstance
	Page            = render.Page
	RenderResult    = render.Result
	RenderStatus    = render.Status
	SubmitResult    = templatescmd.SubmitResult
	Shop            = interfaces.Shop
	TenantDirectory = interfaces.TenantDirectory
	RenderMetrics   = interfaces.RenderMetrics
	LoggerProvider  = interfaces.LoggerProvider
)

// Option customises module wiring.
type Option = di.Option

// WithLoggerProvider routes module loggers through provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return di.WithLoggerProvider(provider)
}

// WithBunDB stores templates and snippets in an existing database. The
// module creates missing tables but never closes the handle.
func WithBunDB(db *bun.DB) Option {
	return di.WithBunDB(db)
}

// WithTenantDirectory resolves the shop global per tenant.
func WithTenantDirectory(directory interfaces.TenantDirectory) Option {
	return di.WithTenantDirectory(directory)
}

// WithMetrics records render timings and fallbacks.
func WithMetrics(metrics interfaces.RenderMetrics) Option {
	return di.WithRenderMetrics(metrics)
}

// Module is the top level sections runtime.
type Module struct {
	container *di.Container
	submit    *templatescmd.SubmitTemplateHandler
}

// New constructs a module using cfg and optional overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	return NewWithContext(context.Background(), cfg, opts...)
}

// NewWithContext is New with a context bounding storage setup.
func NewWithContext(ctx context.Context, cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	logger := logging.ModuleLogger(container.LoggerProvider(), "sections.commands")
	return &Module{
		container: container,
		submit:    templatescmd.NewSubmitTemplateHandler(container.Templates(), container.Engine(), logger),
	}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Templates returns the template store.
func (m *Module) Templates() TemplateService {
	return m.container.Templates()
}

// Snippets returns the snippet store.
func (m *Module) Snippets() SnippetService {
	return m.container.Snippets()
}

// Engine returns the render engine.
func (m *Module) Engine() *Engine {
	return m.container.Engine()
}

// Validate checks a candidate without storing it.
func (m *Module) Validate(candidate Candidate) error {
	return m.container.Validator().Validate(candidate)
}

// Submit validates and stores an authored template. source is "human" or
// "ai" and is only recorded.
func (m *Module) Submit(ctx context.Context, tenantID string, candidate Candidate, source string) (*SubmitResult, error) {
	return m.submit.Submit(ctx, templatescmd.SubmitTemplateCommand{
		TenantID:  tenantID,
		Candidate: candidate,
		Source:    source,
	})
}

// RenderSection renders one section instance. It never fails: problems
// produce placeholder or fallback markup.
func (m *Module) RenderSection(ctx context.Context, tenantID string, instance SectionInstance, instanceID string) string {
	return m.container.Engine().RenderSection(ctx, tenantID, instance, instanceID)
}

// RenderBlock renders one block of a section type outside its section.
func (m *Module) RenderBlock(ctx context.Context, tenantID, sectionType string, block BlockInstance, blockID string) string {
	return m.container.Engine().RenderBlock(ctx, tenantID, sectionType, block, blockID)
}

// RenderPage renders the page sections concurrently in declared order.
func (m *Module) RenderPage(ctx context.Context, tenantID string, page Page) string {
	return m.container.Engine().RenderPage(ctx, tenantID, page)
}

// ScopeStylesheet rewrites css so its rules only match inside the section
// instance.
func ScopeStylesheet(css, instanceID string) string {
	return cssscope.Scope(css, instanceID)
}

// PreviewHandler returns the HTTP preview API.
func (m *Module) PreviewHandler() (http.Handler, error) {
	return m.container.PreviewAPI().Handler()
}

// Close releases resources the module opened.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}
