package snippetscmd

import (
	"context"
	"strings"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-sections/internal/commands"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

const (
	putOperation    = "snippets.put"
	importOperation = "snippets.import_directory"
)

var (
	_ command.Commander[PutSnippetCommand]      = (*PutSnippetHandler)(nil)
	_ command.Commander[ImportDirectoryCommand] = (*ImportDirectoryHandler)(nil)
)

// Invalidator drops compiled state for a tenant after its snippets change.
type Invalidator interface {
	Invalidate(tenantID string)
}

// PutSnippetHandler stores snippets through snippets.Service.Put.
type PutSnippetHandler struct {
	service     snippets.Service
	invalidator Invalidator
	opts        []commands.HandlerOption[PutSnippetCommand]
}

// NewPutSnippetHandler creates a put handler. invalidator may be nil.
func NewPutSnippetHandler(service snippets.Service, invalidator Invalidator, logger interfaces.Logger, opts ...commands.HandlerOption[PutSnippetCommand]) *PutSnippetHandler {
	if service == nil {
		panic("snippetscmd: snippet service required")
	}
	logger = commands.EnsureLogger(logger)
	handlerOpts := []commands.HandlerOption[PutSnippetCommand]{
		commands.WithLogger[PutSnippetCommand](logger),
		commands.WithOperation[PutSnippetCommand](putOperation),
		commands.WithMessageFields(func(msg PutSnippetCommand) map[string]any {
			return map[string]any{"tenant_id": msg.TenantID, "snippet_key": msg.Key}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[PutSnippetCommand](logger)),
	}
	return &PutSnippetHandler{
		service:     service,
		invalidator: invalidator,
		opts:        append(handlerOpts, opts...),
	}
}

// Execute satisfies command.Commander[PutSnippetCommand].
func (h *PutSnippetHandler) Execute(ctx context.Context, msg PutSnippetCommand) error {
	_, err := h.Put(ctx, msg)
	return err
}

// Put runs the command and returns where the markup was stored.
func (h *PutSnippetHandler) Put(ctx context.Context, msg PutSnippetCommand) (*snippets.PutResult, error) {
	var result *snippets.PutResult
	inner := commands.NewHandler(func(ctx context.Context, msg PutSnippetCommand) error {
		tenantID := strings.TrimSpace(msg.TenantID)
		out, err := h.service.Put(ctx, snippets.PutInput{
			TenantID:    tenantID,
			Key:         msg.Key,
			Name:        msg.Name,
			Description: msg.Description,
			Markup:      msg.Markup,
		})
		if err != nil {
			return err
		}
		if out.Outcome != snippets.OutcomeUnchanged && h.invalidator != nil {
			h.invalidator.Invalidate(tenantID)
		}
		result = out
		return nil
	}, h.opts...)
	if err := inner.Execute(ctx, msg); err != nil {
		return nil, err
	}
	return result, nil
}

// ImportDirectoryHandler loads a snippet directory for a tenant.
type ImportDirectoryHandler struct {
	inner *commands.Handler[ImportDirectoryCommand]
}

// NewImportDirectoryHandler creates an import handler. invalidator may be nil.
func NewImportDirectoryHandler(service snippets.Service, invalidator Invalidator, logger interfaces.Logger, opts ...commands.HandlerOption[ImportDirectoryCommand]) *ImportDirectoryHandler {
	if service == nil {
		panic("snippetscmd: snippet service required")
	}
	logger = commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ImportDirectoryCommand) error {
		tenantID := strings.TrimSpace(msg.TenantID)
		keys, err := snippets.LoadDir(ctx, service, msg.Directory, tenantID)
		if len(keys) > 0 && invalidator != nil {
			invalidator.Invalidate(tenantID)
		}
		if err != nil {
			return err
		}
		logging.WithFields(logger, map[string]any{
			"tenant_id":      tenantID,
			"imported_count": len(keys),
		}).Info("snippets.command.import_directory.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ImportDirectoryCommand]{
		commands.WithLogger[ImportDirectoryCommand](logger),
		commands.WithOperation[ImportDirectoryCommand](importOperation),
		commands.WithMessageFields(func(msg ImportDirectoryCommand) map[string]any {
			return map[string]any{"tenant_id": msg.TenantID, "directory": msg.Directory}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ImportDirectoryCommand](logger)),
	}
	return &ImportDirectoryHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[ImportDirectoryCommand].
func (h *ImportDirectoryHandler) Execute(ctx context.Context, msg ImportDirectoryCommand) error {
	return h.inner.Execute(ctx, msg)
}
