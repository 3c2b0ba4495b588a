package snippetscmd

import (
	"context"
	"strings"

	command "github.com/goliatone/go-command"
)

// DefaultResyncExpression is the cron schedule used when none is given.
const DefaultResyncExpression = "@hourly"

// ScheduledImportOption customises the scheduled import handler.
type ScheduledImportOption func(*ScheduledImportHandler)

// WithResyncExpression overrides the cron expression.
func WithResyncExpression(expression string) ScheduledImportOption {
	return func(h *ScheduledImportHandler) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			h.cronConfig.Expression = trimmed
		}
	}
}

// ScheduledImportHandler re-imports a fixed snippet directory on a cron
// schedule, for hosts that cannot run the file watcher.
type ScheduledImportHandler struct {
	inner      *ImportDirectoryHandler
	msg        ImportDirectoryCommand
	cronConfig command.HandlerConfig
}

// NewScheduledImportHandler binds an import handler to msg.
func NewScheduledImportHandler(inner *ImportDirectoryHandler, msg ImportDirectoryCommand, opts ...ScheduledImportOption) *ScheduledImportHandler {
	h := &ScheduledImportHandler{
		inner:      inner,
		msg:        msg,
		cronConfig: command.HandlerConfig{Expression: DefaultResyncExpression},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Execute runs the import with the bound message.
func (h *ScheduledImportHandler) Execute(ctx context.Context, _ ImportDirectoryCommand) error {
	return h.inner.Execute(ctx, h.msg)
}

// CronHandler satisfies command.CronCommand.
func (h *ScheduledImportHandler) CronHandler() func() error {
	return func() error {
		return h.inner.Execute(context.Background(), h.msg)
	}
}

// CronOptions satisfies command.CronCommand.
func (h *ScheduledImportHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}
