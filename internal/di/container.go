package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	sectionshttp "github.com/goliatone/go-sections/internal/http"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/logging/console"
	"github.com/goliatone/go-sections/internal/logging/gologger"
	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/runtimeconfig"
	"github.com/goliatone/go-sections/internal/settings"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/storage"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/internal/watch"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// Container wires the sections services from a runtime config.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	tenants        interfaces.TenantDirectory
	metrics        interfaces.RenderMetrics

	bunDB         *bun.DB
	ownsDB        bool
	cacheTTL      time.Duration
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	templateRepo templates.TemplateRepository
	snippetRepo  snippets.SnippetRepository

	registry    *settings.Registry
	validator   *templates.Validator
	snippetSvc  snippets.Service
	templateSvc templates.Service
	engine      *render.Engine

	closeOnce sync.Once
}

// Option customises the container before services are built.
type Option func(*Container)

// WithLoggerProvider overrides the provider built from the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithBunDB supplies an open database. The container does not close it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache supplies the repository cache used over bun repositories.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithTenantDirectory sets the shop lookup used for render globals.
func WithTenantDirectory(directory interfaces.TenantDirectory) Option {
	return func(c *Container) {
		c.tenants = directory
	}
}

// WithRenderMetrics sets the render metrics sink.
func WithRenderMetrics(metrics interfaces.RenderMetrics) Option {
	return func(c *Container) {
		c.metrics = metrics
	}
}

// WithTemplateRepository replaces the template persistence layer.
func WithTemplateRepository(repo templates.TemplateRepository) Option {
	return func(c *Container) {
		c.templateRepo = repo
	}
}

// WithSnippetRepository replaces the snippet persistence layer.
func WithSnippetRepository(repo snippets.SnippetRepository) Option {
	return func(c *Container) {
		c.snippetRepo = repo
	}
}

// NewContainer validates cfg and builds every service. Database drivers are
// opened and migrated here unless WithBunDB supplied a handle.
func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheTTL := cfg.Cache.DefaultTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	c := &Container{
		Config:   cfg,
		cacheTTL: cacheTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	if err := c.configureStorage(ctx); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureRepositories()
	c.configureServices()
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		level := console.ParseLevel(c.Config.Logging.Level)
		c.loggerProvider = console.NewProvider(console.Options{MinLevel: &level})
	}
	return nil
}

func (c *Container) configureStorage(ctx context.Context) error {
	if c.bunDB == nil && runtimeconfig.NormalizeDriver(c.Config.Storage.Driver) != runtimeconfig.DriverMemory {
		db, err := storage.Open(ctx, c.Config.Storage)
		if err != nil {
			return fmt.Errorf("sections: open storage: %w", err)
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if c.bunDB == nil {
		return nil
	}
	if err := storage.EnsureSchema(ctx, c.bunDB); err != nil {
		return errors.Join(fmt.Errorf("sections: ensure schema: %w", err), c.Close())
	}
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled || c.bunDB == nil {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		cfg.TTL = c.cacheTTL
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories() {
	if c.templateRepo == nil {
		if c.bunDB != nil {
			c.templateRepo = templates.NewBunTemplateRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.templateRepo = templates.NewMemoryTemplateRepository()
		}
	}
	if c.snippetRepo == nil {
		if c.bunDB != nil {
			c.snippetRepo = snippets.NewBunSnippetRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.snippetRepo = snippets.NewMemorySnippetRepository()
		}
	}
}

func (c *Container) configureServices() {
	invalidate := func(tenantID string) {
		if c.engine != nil {
			c.engine.Invalidate(tenantID)
		}
	}

	c.registry = settings.NewRegistry(settings.WithStrict(c.Config.Validation.StrictSettingTypes))
	c.validator = templates.NewValidator(c.registry)

	c.snippetSvc = snippets.NewService(c.snippetRepo,
		snippets.WithLogger(logging.SnippetsLogger(c.loggerProvider)),
		snippets.WithWriteHook(invalidate),
	)
	c.templateSvc = templates.NewService(c.templateRepo,
		templates.WithLogger(logging.TemplatesLogger(c.loggerProvider)),
		templates.WithValidator(c.validator),
		templates.WithSnippetStore(c.snippetSvc),
		templates.WithWriteHook(invalidate),
	)

	engineOpts := []render.Option{
		render.WithConfig(c.Config.Render),
		render.WithSnippetResolver(c.snippetSvc),
		render.WithFieldRegistry(c.registry),
		render.WithLogger(logging.RenderLogger(c.loggerProvider)),
	}
	if c.tenants != nil {
		engineOpts = append(engineOpts, render.WithTenantDirectory(c.tenants))
	}
	if c.metrics != nil {
		engineOpts = append(engineOpts, render.WithMetrics(c.metrics))
	}
	c.engine = render.NewEngine(c.templateSvc, engineOpts...)
}

// LoggerProvider returns the provider module loggers come from.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// BunDB returns the database handle, nil for memory storage.
func (c *Container) BunDB() *bun.DB {
	return c.bunDB
}

// CacheService returns the repository cache, nil when caching is off.
func (c *Container) CacheService() repocache.CacheService {
	return c.cacheService
}

// Templates returns the template store.
func (c *Container) Templates() templates.Service {
	return c.templateSvc
}

// Snippets returns the snippet store.
func (c *Container) Snippets() snippets.Service {
	return c.snippetSvc
}

// Validator returns the candidate validator.
func (c *Container) Validator() *templates.Validator {
	return c.validator
}

// Engine returns the render engine.
func (c *Container) Engine() *render.Engine {
	return c.engine
}

// PreviewAPI builds the HTTP preview API over the container services.
func (c *Container) PreviewAPI() *sectionshttp.PreviewAPI {
	return sectionshttp.NewPreviewAPI(
		sectionshttp.WithBasePath(c.Config.HTTP.BasePath),
		sectionshttp.WithTemplateService(c.templateSvc),
		sectionshttp.WithSnippetService(c.snippetSvc),
		sectionshttp.WithEngine(c.engine),
		sectionshttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
	)
}

// ImportSnippets loads the configured snippet directory once. It returns
// the imported keys; no directory means nothing to do.
func (c *Container) ImportSnippets(ctx context.Context) ([]string, error) {
	dir := strings.TrimSpace(c.Config.Snippets.Dir)
	if dir == "" {
		return nil, nil
	}
	return snippets.LoadDir(ctx, c.snippetSvc, dir, c.Config.Snippets.Tenant)
}

// WatchSnippets mirrors the configured snippet directory until ctx is done.
func (c *Container) WatchSnippets(ctx context.Context) error {
	dir := strings.TrimSpace(c.Config.Snippets.Dir)
	if dir == "" {
		return runtimeconfig.ErrSnippetWatchRequiresDir
	}
	return watch.Snippets(ctx, dir, c.Config.Snippets.Tenant, c.snippetSvc, c.engine.Invalidate,
		watch.WithLogger(logging.WatchLogger(c.loggerProvider)),
	)
}

// Close releases the database when the container opened it.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.ownsDB && c.bunDB != nil {
			err = c.bunDB.Close()
		}
	})
	return err
}
