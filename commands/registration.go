package commands

import (
	"errors"
	"strings"

	command "github.com/goliatone/go-command"

	internalcommands "github.com/goliatone/go-sections/internal/commands"
	"github.com/goliatone/go-sections/internal/commands/snippetscmd"
	"github.com/goliatone/go-sections/internal/commands/templatescmd"
	"github.com/goliatone/go-sections/internal/di"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// CommandRegistry records command handlers so hosts can expose them via CLI or cron.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// CronRegistrar registers command handlers with a cron scheduler.
type CronRegistrar func(command.HandlerConfig, any) error

// RegistrationOptions configures how handlers are registered during construction.
type RegistrationOptions struct {
	Registry       CommandRegistry
	Dispatcher     CommandDispatcher
	CronRegistrar  CronRegistrar
	LoggerProvider interfaces.LoggerProvider
	// SnippetResyncCron overrides the schedule of the snippet directory re-import.
	SnippetResyncCron string
}

// RegistrationResult captures the constructed command handlers and any dispatcher subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// RegisterContainerCommands builds the command handlers exposed by the provided container and
// optionally registers them with registry/dispatcher/cron integrations.
func RegisterContainerCommands(container *di.Container, opts RegistrationOptions) (*RegistrationResult, error) {
	if container == nil {
		return &RegistrationResult{}, nil
	}

	cfg := container.Config

	provider := opts.LoggerProvider
	if provider == nil {
		provider = container.LoggerProvider()
	}

	result := &RegistrationResult{
		Handlers:      make([]any, 0),
		Subscriptions: make([]CommandSubscription, 0),
	}

	var errs error

	register := func(handler any) {
		if handler == nil {
			return
		}
		result.Handlers = append(result.Handlers, handler)

		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		if opts.Dispatcher != nil {
			subscription, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if subscription != nil {
				result.Subscriptions = append(result.Subscriptions, subscription)
			}
		}

		if opts.CronRegistrar != nil {
			if cronCmd, ok := handler.(command.CronCommand); ok {
				if err := opts.CronRegistrar(cronCmd.CronOptions(), cronCmd.CronHandler()); err != nil {
					errs = errors.Join(errs, err)
				}
			}
		}
	}

	loggerFor := func(module string) interfaces.Logger {
		return internalcommands.CommandLogger(provider, module)
	}

	engine := container.Engine()

	// Template commands.
	if service := container.Templates(); service != nil {
		templatesLogger := loggerFor("templates")
		register(templatescmd.NewSubmitTemplateHandler(service, engine, templatesLogger))
		register(templatescmd.NewDeleteTemplateHandler(service, engine, templatesLogger))
	}

	// Snippet commands.
	if service := container.Snippets(); service != nil {
		snippetsLogger := loggerFor("snippets")
		register(snippetscmd.NewPutSnippetHandler(service, engine, snippetsLogger))
		importer := snippetscmd.NewImportDirectoryHandler(service, engine, snippetsLogger)
		register(importer)

		if dir := strings.TrimSpace(cfg.Snippets.Dir); dir != "" {
			register(snippetscmd.NewScheduledImportHandler(importer,
				snippetscmd.ImportDirectoryCommand{TenantID: cfg.Snippets.Tenant, Directory: dir},
				snippetscmd.WithResyncExpression(opts.SnippetResyncCron),
			))
		}
	}

	if errs != nil && len(result.Handlers) == 0 {
		return result, errs
	}

	if len(result.Handlers) == 0 {
		return result, errors.New("no command handlers registered; ensure services are configured")
	}

	return result, errs
}
