package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-sections/internal/commands/snippetscmd"
	"github.com/goliatone/go-sections/internal/commands/templatescmd"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

const (
	defaultBasePath    = "/api"
	renderStatusHeader = "X-Render-Status"
)

var (
	ErrTemplateServiceRequired = errors.New("http: template service is required")
	ErrSnippetServiceRequired  = errors.New("http: snippet service is required")
	ErrEngineRequired          = errors.New("http: render engine is required")
	ErrRouterRequired          = errors.New("http: router is required")
)

// PreviewAPI wires template, snippet and render endpoints.
type PreviewAPI struct {
	basePath  string
	templates templates.Service
	snippets  snippets.Service
	engine    *render.Engine
	logger    interfaces.Logger

	submit     *templatescmd.SubmitTemplateHandler
	remove     *templatescmd.DeleteTemplateHandler
	putSnippet *snippetscmd.PutSnippetHandler
}

// PreviewOption configures the API.
type PreviewOption func(*PreviewAPI)

// WithBasePath overrides the mount path (default /api).
func WithBasePath(path string) PreviewOption {
	return func(a *PreviewAPI) {
		if path != "" {
			a.basePath = path
		}
	}
}

// WithTemplateService sets the template store.
func WithTemplateService(service templates.Service) PreviewOption {
	return func(a *PreviewAPI) {
		a.templates = service
	}
}

// WithSnippetService sets the snippet store.
func WithSnippetService(service snippets.Service) PreviewOption {
	return func(a *PreviewAPI) {
		a.snippets = service
	}
}

// WithEngine sets the render engine.
func WithEngine(engine *render.Engine) PreviewOption {
	return func(a *PreviewAPI) {
		a.engine = engine
	}
}

// WithLogger sets the request logger.
func WithLogger(logger interfaces.Logger) PreviewOption {
	return func(a *PreviewAPI) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewPreviewAPI builds the API. Services are checked when routes are
// registered.
func NewPreviewAPI(opts ...PreviewOption) *PreviewAPI {
	api := &PreviewAPI{
		basePath: defaultBasePath,
		logger:   logging.HTTPLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

func (a *PreviewAPI) validate() error {
	switch {
	case a.templates == nil:
		return ErrTemplateServiceRequired
	case a.snippets == nil:
		return ErrSnippetServiceRequired
	case a.engine == nil:
		return ErrEngineRequired
	}
	return nil
}

// Register mounts the endpoints on r under the base path.
func (a *PreviewAPI) Register(r chi.Router) error {
	if r == nil {
		return ErrRouterRequired
	}
	if err := a.validate(); err != nil {
		return err
	}

	a.submit = templatescmd.NewSubmitTemplateHandler(a.templates, a.engine, a.logger)
	a.remove = templatescmd.NewDeleteTemplateHandler(a.templates, a.engine, a.logger)
	a.putSnippet = snippetscmd.NewPutSnippetHandler(a.snippets, a.engine, a.logger)

	r.Route(joinPath(a.basePath, "tenants/{tenant}"), func(r chi.Router) {
		r.Use(tenantFields)
		r.Route("/templates", func(r chi.Router) {
			r.Post("/", a.handleSubmitTemplate)
			r.Get("/", a.handleListTemplates)
			r.Get("/{type}", a.handleGetTemplate)
			r.Delete("/{type}", a.handleDeleteTemplate)
			r.Get("/{type}/preview", a.handlePreviewPreset)
		})
		r.Post("/render/section", a.handleRenderSection)
		r.Post("/render/page", a.handleRenderPage)
		r.Put("/snippets/*", a.handlePutSnippet)
		r.Get("/snippets/*", a.handleGetSnippet)
	})
	return nil
}

// Handler returns a standalone router with request-id, recovery and
// request-logging middleware.
func (a *PreviewAPI) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)
	if err := a.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// requestLogger attaches the request id to the context log fields and logs
// one entry per request.
func (a *PreviewAPI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logging.ContextWithFields(ctx, map[string]any{"request_id": id})
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		// The route context is populated once routing has run.
		if rctx := chi.RouteContext(ctx); rctx != nil {
			if tenant := rctx.URLParam("tenant"); tenant != "" {
				args = append(args, "tenant_id", tenant)
			}
		}
		a.logger.WithContext(ctx).Info("http.request", args...)
	})
}

func tenantFields(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant := chi.URLParam(r, "tenant"); tenant != "" {
			r = r.WithContext(logging.ContextWithFields(r.Context(), map[string]any{"tenant_id": tenant}))
		}
		next.ServeHTTP(w, r)
	})
}
