package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/runtimeconfig"
	"github.com/goliatone/go-sections/internal/settings"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// ErrTemplateSourceRequired is raised when an engine is built without a
// template source.
var ErrTemplateSourceRequired = errors.New("render: template source required")

// TemplateSource looks up stored section templates. A missing template must
// be reported with an error matching templates.ErrTemplateNotFound.
type TemplateSource interface {
	Get(ctx context.Context, tenantID, sectionType string) (*templates.SectionTemplate, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnippetResolver sets the tenant snippet store used by render and include.
func WithSnippetResolver(resolver interfaces.SnippetResolver) Option {
	return func(e *Engine) {
		e.snippets = resolver
	}
}

// WithFieldRegistry sets the setting-field variants used to resolve defaults.
func WithFieldRegistry(registry *settings.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// WithTenantDirectory sets the source of the shop global.
func WithTenantDirectory(directory interfaces.TenantDirectory) Option {
	return func(e *Engine) {
		e.directory = directory
	}
}

// WithConfig sets timeouts, concurrency and URL bases.
func WithConfig(cfg runtimeconfig.RenderConfig) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the render metrics sink.
func WithMetrics(metrics interfaces.RenderMetrics) Option {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// WithInterpreters shares an interpreter registry between engines.
func WithInterpreters(interpreters *Interpreters) Option {
	return func(e *Engine) {
		e.interpreters = interpreters
	}
}

// Engine renders section and block instances. Render methods never return
// errors; failures become placeholder or fallback fragments.
type Engine struct {
	source       TemplateSource
	snippets     interfaces.SnippetResolver
	registry     *settings.Registry
	directory    interfaces.TenantDirectory
	interpreters *Interpreters
	cfg          runtimeconfig.RenderConfig
	logger       interfaces.Logger
	metrics      interfaces.RenderMetrics
}

// NewEngine constructs a render engine.
func NewEngine(source TemplateSource, opts ...Option) *Engine {
	if source == nil {
		panic(ErrTemplateSourceRequired)
	}
	registerBuiltins()

	e := &Engine{
		source:   source,
		registry: settings.NewRegistry(),
		cfg:      runtimeconfig.DefaultConfig().Render,
		logger:   logging.NoOp(),
		metrics:  interfaces.NoopRenderMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.interpreters == nil {
		e.interpreters = NewInterpreters(e.buildInterpreter)
	}
	return e
}

// Interpreters exposes the tenant interpreter registry.
func (e *Engine) Interpreters() *Interpreters {
	return e.interpreters
}

// Invalidate drops the tenant interpreter so template and snippet edits are
// picked up by the next render.
func (e *Engine) Invalidate(tenantID string) {
	e.interpreters.Invalidate(tenantID)
}

// RenderSection renders one section instance to HTML.
func (e *Engine) RenderSection(ctx context.Context, tenantID string, instance SectionInstance, instanceID string) string {
	return e.RenderSectionResult(ctx, tenantID, instance, instanceID).HTML
}

// RenderSectionResult renders one section instance and reports how the
// fragment was produced.
func (e *Engine) RenderSectionResult(ctx context.Context, tenantID string, instance SectionInstance, instanceID string) Result {
	start := time.Now()
	logger := logging.WithSection(logging.WithTenant(logging.WithRequestContext(e.logger, ctx), tenantID), instanceID, instance.Type)

	tpl, err := e.source.Get(ctx, tenantID, instance.Type)
	if err != nil || tpl == nil {
		if err == nil || errors.Is(err, templates.ErrTemplateNotFound) {
			logger.Warn("render.section.template_missing")
			return e.finish("section", instance.Type, start, Result{
				HTML:   missingSection(instanceID, instance.Type),
				Status: StatusMissing,
				Err:    &EvaluationError{Kind: "section", Type: instance.Type, Reason: ReasonMissing, Cause: err},
			}, ReasonMissing)
		}
		evalErr := &EvaluationError{Kind: "section", Type: instance.Type, Reason: ReasonStore, Cause: err}
		logger.Error("render.section.template_lookup_failed", "error", err)
		return e.finish("section", instance.Type, start, Result{
			HTML:   fallbackFragment("section", instanceID, instance.Type, instance.Settings, evalErr, e.cfg.ExposeErrors),
			Status: StatusFallback,
			Err:    evalErr,
		}, ReasonStore)
	}

	sc := e.buildSectionContext(tpl, instance, instanceID)
	if sc.drift && instance.BlockOrder != nil {
		logger.Debug("render.section.block_order_drift", "declared", instance.BlockOrder, "rendered", sc.order)
	}

	body, reason, err := e.run(ctx, func(runCtx context.Context) (string, string, error) {
		interpreter := e.interpreters.Get(runCtx, tenantID)
		compiled, err := interpreter.Compile(tpl.Markup)
		if err != nil {
			return "", ReasonCompile, err
		}
		scope := &snippetScope{
			ctx:         runCtx,
			interpreter: interpreter,
			local:       tpl.Snippets,
			resolver:    e.snippets,
			logger:      logger,
		}
		sectionData := sc.data()
		out, err := compiled.Execute(pongo2.Context{
			"section":       sectionData,
			"render_block":  e.blockRenderer(interpreter, scope, tpl, instance, sectionData),
			snippetScopeKey: scope,
		})
		if err != nil {
			return "", ReasonEvaluation, err
		}
		return out, "", nil
	})
	if err != nil {
		evalErr := &EvaluationError{Kind: "section", Type: instance.Type, Reason: reason, Cause: err}
		e.logFailure(logger, "render.section", reason, err)
		return e.finish("section", instance.Type, start, Result{
			HTML:   fallbackFragment("section", instanceID, instance.Type, instance.Settings, evalErr, e.cfg.ExposeErrors),
			Status: StatusFallback,
			Err:    evalErr,
		}, reason)
	}

	return e.finish("section", instance.Type, start, Result{
		HTML:   wrapSection(instanceID, tpl.Type, tpl.Stylesheet, sc.values, body),
		Status: StatusOK,
	}, "")
}

// RenderBlock renders one block against the block template of its owning
// section type.
func (e *Engine) RenderBlock(ctx context.Context, tenantID, sectionType string, block BlockInstance, blockID string) string {
	return e.RenderBlockResult(ctx, tenantID, sectionType, block, blockID).HTML
}

// RenderBlockResult renders one block and reports how the fragment was produced.
func (e *Engine) RenderBlockResult(ctx context.Context, tenantID, sectionType string, block BlockInstance, blockID string) Result {
	start := time.Now()
	logger := logging.WithFields(logging.WithTenant(logging.WithRequestContext(e.logger, ctx), tenantID), map[string]any{
		"section_type": sectionType,
		"block_id":     blockID,
		"block_type":   block.Type,
	})

	tpl, err := e.source.Get(ctx, tenantID, sectionType)
	if err != nil && !errors.Is(err, templates.ErrTemplateNotFound) {
		evalErr := &EvaluationError{Kind: "block", Type: block.Type, Reason: ReasonStore, Cause: err}
		logger.Error("render.block.template_lookup_failed", "error", err)
		return e.finish("block", block.Type, start, Result{
			HTML:   fallbackFragment("block", blockID, block.Type, block.Settings, evalErr, e.cfg.ExposeErrors),
			Status: StatusFallback,
			Err:    evalErr,
		}, ReasonStore)
	}
	var source string
	found := false
	if err == nil && tpl != nil {
		source, found = tpl.BlockTemplates[block.Type]
	}
	if !found {
		logger.Warn("render.block.template_missing")
		return e.finish("block", block.Type, start, Result{
			HTML:   missingBlock(blockID, block.Type),
			Status: StatusMissing,
			Err:    &EvaluationError{Kind: "block", Type: block.Type, Reason: ReasonMissing, Cause: err},
		}, ReasonMissing)
	}

	values := settings.Normalize(block.Settings)
	if descriptor, ok := tpl.Schema.Block(block.Type); ok {
		values = e.registry.ApplyDefaults(descriptor.Settings, values)
	}

	body, reason, err := e.run(ctx, func(runCtx context.Context) (string, string, error) {
		interpreter := e.interpreters.Get(runCtx, tenantID)
		compiled, err := interpreter.Compile(source)
		if err != nil {
			return "", ReasonCompile, err
		}
		scope := &snippetScope{
			ctx:         runCtx,
			interpreter: interpreter,
			local:       tpl.Snippets,
			resolver:    e.snippets,
			logger:      logger,
		}
		out, err := compiled.Execute(pongo2.Context{
			"block":         blockData(blockID, block, values),
			"section":       map[string]any{"type": tpl.Type},
			snippetScopeKey: scope,
		})
		if err != nil {
			return "", ReasonEvaluation, err
		}
		return out, "", nil
	})
	if err != nil {
		evalErr := &EvaluationError{Kind: "block", Type: block.Type, Reason: reason, Cause: err}
		e.logFailure(logger, "render.block", reason, err)
		return e.finish("block", block.Type, start, Result{
			HTML:   fallbackFragment("block", blockID, block.Type, block.Settings, evalErr, e.cfg.ExposeErrors),
			Status: StatusFallback,
			Err:    evalErr,
		}, reason)
	}

	return e.finish("block", block.Type, start, Result{
		HTML:   wrapBlock(blockID, block.Type, body),
		Status: StatusOK,
	}, "")
}

// blockRenderer is exposed to section markup as render_block(block). It runs
// inside the section evaluation and shares its deadline.
func (e *Engine) blockRenderer(interpreter *Interpreter, scope *snippetScope, tpl *templates.SectionTemplate, instance SectionInstance, sectionData map[string]any) func(*pongo2.Value) *pongo2.Value {
	return func(value *pongo2.Value) *pongo2.Value {
		data, ok := value.Interface().(map[string]any)
		if !ok {
			return pongo2.AsSafeValue("")
		}
		blockID, _ := data["id"].(string)
		blockType, _ := data["type"].(string)

		source, ok := tpl.BlockTemplates[blockType]
		if !ok {
			return pongo2.AsSafeValue(missingBlock(blockID, blockType))
		}
		compiled, err := interpreter.Compile(source)
		if err == nil {
			var out string
			out, err = compiled.Execute(pongo2.Context{
				"block":         data,
				"section":       sectionData,
				snippetScopeKey: scope,
			})
			if err == nil {
				return pongo2.AsSafeValue(wrapBlock(blockID, blockType, out))
			}
		}
		evalErr := &EvaluationError{Kind: "block", Type: blockType, Reason: ReasonEvaluation, Cause: err}
		e.logFailure(scope.logger, "render.block", ReasonEvaluation, err)
		e.metrics.IncrementFallback("block", blockType, ReasonEvaluation)
		return pongo2.AsSafeValue(fallbackFragment("block", blockID, blockType, instance.Blocks[blockID].Settings, evalErr, e.cfg.ExposeErrors))
	}
}

type runOutcome struct {
	html   string
	reason string
	err    error
}

// run evaluates fn under the section timeout and converts panics into
// errors. A timed out evaluation is abandoned.
func (e *Engine) run(ctx context.Context, fn func(context.Context) (string, string, error)) (string, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if e.cfg.SectionTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SectionTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if err := ctx.Err(); err != nil {
		return "", ReasonCanceled, err
	}

	done := make(chan runOutcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- runOutcome{reason: ReasonPanic, err: fmt.Errorf("panic: %v", recovered)}
			}
		}()
		html, reason, err := fn(ctx)
		done <- runOutcome{html: html, reason: reason, err: err}
	}()

	select {
	case out := <-done:
		return out.html, out.reason, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ReasonTimeout, fmt.Errorf("evaluation exceeded %s", e.cfg.SectionTimeout)
		}
		return "", ReasonCanceled, ctx.Err()
	}
}

func (e *Engine) finish(kind, typ string, start time.Time, result Result, reason string) Result {
	result.Duration = time.Since(start)
	e.metrics.ObserveRender(kind, typ, string(result.Status), result.Duration)
	if reason != "" {
		e.metrics.IncrementFallback(kind, typ, reason)
	}
	return result
}

func (e *Engine) logFailure(logger interfaces.Logger, prefix, reason string, err error) {
	switch reason {
	case ReasonTimeout:
		logger.Warn(prefix+".timeout", "timeout", e.cfg.SectionTimeout.String())
	case ReasonCanceled:
		logger.Debug(prefix+".canceled", "error", err)
	default:
		logger.Error(prefix+".evaluation_failed", "reason", reason, "error", err)
	}
}

// Check compiles the markup and block templates of a template against the
// tenant interpreter. Compile errors are reported together.
func (e *Engine) Check(ctx context.Context, tenantID string, tpl *templates.SectionTemplate) error {
	if tpl == nil {
		return nil
	}
	interpreter := e.interpreters.Get(ctx, tenantID)
	var errs []error
	if _, err := interpreter.Compile(tpl.Markup); err != nil {
		errs = append(errs, fmt.Errorf("markup: %w", err))
	}
	blockTypes := make([]string, 0, len(tpl.BlockTemplates))
	for blockType := range tpl.BlockTemplates {
		blockTypes = append(blockTypes, blockType)
	}
	sort.Strings(blockTypes)
	for _, blockType := range blockTypes {
		if _, err := interpreter.Compile(tpl.BlockTemplates[blockType]); err != nil {
			errs = append(errs, fmt.Errorf("block %s: %w", blockType, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) buildInterpreter(ctx context.Context, tenantID string) *Interpreter {
	shop := e.shop(ctx, tenantID)
	assetBase := strings.TrimSpace(e.cfg.AssetBaseURL)
	if assetBase == "" {
		assetBase = DefaultAssetBase
	}
	imageBase := strings.TrimSpace(e.cfg.ImageBaseURL)
	if imageBase == "" {
		imageBase = assetBase
	}

	return NewInterpreter(tenantID, pongo2.Context{
		"shop": map[string]any{
			"id":       shop.ID,
			"name":     shop.Name,
			"domain":   shop.Domain,
			"currency": shop.Currency,
			"locale":   shop.Locale,
		},
		"asset_base": assetBase,
		"asset_path": func(asset *pongo2.Value) *pongo2.Value {
			return pongo2.AsValue(AssetURL(assetBase, asset.String()))
		},
		"image_path": func(src, size *pongo2.Value) *pongo2.Value {
			return pongo2.AsValue(ImageURL(AssetURL(imageBase, src.String()), sizeArgument(size)))
		},
	})
}

func (e *Engine) shop(ctx context.Context, tenantID string) interfaces.Shop {
	shop := interfaces.Shop{ID: tenantID, Name: tenantID}
	if e.directory != nil {
		found, err := e.directory.Shop(ctx, tenantID)
		if err != nil {
			logging.WithTenant(e.logger, tenantID).Warn("render.shop.lookup_failed", "error", err)
		} else {
			shop = found
			if shop.ID == "" {
				shop.ID = tenantID
			}
			if shop.Name == "" {
				shop.Name = tenantID
			}
		}
	}
	if shop.Currency == "" {
		shop.Currency = e.cfg.DefaultCurrency
	}
	if shop.Currency == "" {
		shop.Currency = DefaultCurrency
	}
	return shop
}

// sizeArgument accepts image_path(src, 600) as well as image_path(src, "600x").
func sizeArgument(size *pongo2.Value) string {
	if size == nil || size.IsNil() {
		return ""
	}
	if size.IsNumber() {
		return fmt.Sprintf("%dx", size.Integer())
	}
	return size.String()
}
