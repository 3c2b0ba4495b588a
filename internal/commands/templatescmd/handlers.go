package templatescmd

import (
	"context"
	"strings"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-sections/internal/commands"
	"github.com/goliatone/go-sections/internal/templates"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

const (
	submitOperation = "templates.submit"
	deleteOperation = "templates.delete"
)

var (
	_ command.Commander[SubmitTemplateCommand] = (*SubmitTemplateHandler)(nil)
	_ command.Commander[DeleteTemplateCommand] = (*DeleteTemplateHandler)(nil)
)

// Renderer is the part of the render engine commands depend on.
type Renderer interface {
	Check(ctx context.Context, tenantID string, tpl *templates.SectionTemplate) error
	Invalidate(tenantID string)
}

// SubmitResult reports a stored submission. Warnings carry markup that was
// accepted but does not compile; such sections render as fallbacks.
type SubmitResult struct {
	*templates.SaveResult
	Source   string
	Warnings []string
}

// SubmitTemplateHandler saves authored templates and invalidates the tenant
// interpreter when the stored template changed.
type SubmitTemplateHandler struct {
	service  templates.Service
	renderer Renderer
	logger   interfaces.Logger
	opts     []commands.HandlerOption[SubmitTemplateCommand]
}

// NewSubmitTemplateHandler creates a submit handler. renderer may be nil.
func NewSubmitTemplateHandler(service templates.Service, renderer Renderer, logger interfaces.Logger, opts ...commands.HandlerOption[SubmitTemplateCommand]) *SubmitTemplateHandler {
	if service == nil {
		panic("templatescmd: template service required")
	}
	logger = commands.EnsureLogger(logger)
	handlerOpts := []commands.HandlerOption[SubmitTemplateCommand]{
		commands.WithLogger[SubmitTemplateCommand](logger),
		commands.WithOperation[SubmitTemplateCommand](submitOperation),
		commands.WithMessageFields(func(msg SubmitTemplateCommand) map[string]any {
			fields := map[string]any{"tenant_id": msg.TenantID}
			if msg.Candidate.Type != "" {
				fields["section_type"] = msg.Candidate.Type
			}
			if msg.Source != "" {
				fields["source"] = msg.Source
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[SubmitTemplateCommand](logger)),
	}
	return &SubmitTemplateHandler{
		service:  service,
		renderer: renderer,
		logger:   logger,
		opts:     append(handlerOpts, opts...),
	}
}

// Execute satisfies command.Commander[SubmitTemplateCommand].
func (h *SubmitTemplateHandler) Execute(ctx context.Context, msg SubmitTemplateCommand) error {
	_, err := h.Submit(ctx, msg)
	return err
}

// Submit runs the command and returns the stored outcome.
func (h *SubmitTemplateHandler) Submit(ctx context.Context, msg SubmitTemplateCommand) (*SubmitResult, error) {
	var result *SubmitResult
	inner := commands.NewHandler(func(ctx context.Context, msg SubmitTemplateCommand) error {
		out, err := h.submit(ctx, msg)
		result = out
		return err
	}, h.opts...)
	if err := inner.Execute(ctx, msg); err != nil {
		return nil, err
	}
	return result, nil
}

func (h *SubmitTemplateHandler) submit(ctx context.Context, msg SubmitTemplateCommand) (*SubmitResult, error) {
	tenantID := strings.TrimSpace(msg.TenantID)
	saved, err := h.service.Save(ctx, templates.SaveInput{TenantID: tenantID, Candidate: msg.Candidate})
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{SaveResult: saved, Source: msg.Source}
	if h.renderer == nil {
		return result, nil
	}
	if saved.Outcome != templates.OutcomeUnchanged {
		h.renderer.Invalidate(tenantID)
	}
	if err := h.renderer.Check(ctx, tenantID, saved.Template); err != nil {
		result.Warnings = splitWarnings(err)
		h.logger.Warn("templates.submit.compile_warning",
			"tenant_id", tenantID,
			"section_type", saved.Template.Type,
			"warnings", result.Warnings,
		)
	}
	return result, nil
}

func splitWarnings(err error) []string {
	var warnings []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			warnings = append(warnings, line)
		}
	}
	return warnings
}

// DeleteTemplateHandler removes stored templates.
type DeleteTemplateHandler struct {
	inner *commands.Handler[DeleteTemplateCommand]
}

// NewDeleteTemplateHandler creates a delete handler. renderer may be nil.
func NewDeleteTemplateHandler(service templates.Service, renderer Renderer, logger interfaces.Logger, opts ...commands.HandlerOption[DeleteTemplateCommand]) *DeleteTemplateHandler {
	if service == nil {
		panic("templatescmd: template service required")
	}
	logger = commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg DeleteTemplateCommand) error {
		tenantID := strings.TrimSpace(msg.TenantID)
		if err := service.Delete(ctx, tenantID, msg.SectionType); err != nil {
			return err
		}
		if renderer != nil {
			renderer.Invalidate(tenantID)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[DeleteTemplateCommand]{
		commands.WithLogger[DeleteTemplateCommand](logger),
		commands.WithOperation[DeleteTemplateCommand](deleteOperation),
		commands.WithMessageFields(func(msg DeleteTemplateCommand) map[string]any {
			return map[string]any{"tenant_id": msg.TenantID, "section_type": msg.SectionType}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[DeleteTemplateCommand](logger)),
	}
	return &DeleteTemplateHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[DeleteTemplateCommand].
func (h *DeleteTemplateHandler) Execute(ctx context.Context, msg DeleteTemplateCommand) error {
	return h.inner.Execute(ctx, msg)
}
