package commands

import (
	"context"
	"errors"
	"testing"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-sections/internal/commands/snippetscmd"
	"github.com/goliatone/go-sections/internal/di"
	"github.com/goliatone/go-sections/internal/runtimeconfig"
)

func newContainer(t *testing.T, cfg runtimeconfig.Config) *di.Container {
	t.Helper()
	container, err := di.NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func TestRegisterContainerCommandsBuildsHandlers(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Snippets.Dir = t.TempDir()

	registry := &recordingRegistry{}
	dispatcher := &recordingDispatcher{}
	cron := &recordingCron{}

	result, err := RegisterContainerCommands(newContainer(t, cfg), RegistrationOptions{
		Registry:          registry,
		Dispatcher:        dispatcher,
		CronRegistrar:     cron.Registrar(),
		SnippetResyncCron: "@every 10m",
	})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}

	if len(result.Handlers) != 5 {
		t.Fatalf("expected five handlers, got %d", len(result.Handlers))
	}
	if len(result.Handlers) != len(registry.handlers) {
		t.Fatalf("expected registry to record all handlers, got %d of %d", len(registry.handlers), len(result.Handlers))
	}
	if len(dispatcher.subscriptions) != len(result.Handlers) {
		t.Fatalf("expected a dispatcher subscription per handler, got %d", len(dispatcher.subscriptions))
	}
	if len(cron.registrations) != 1 {
		t.Fatalf("expected the snippet resync cron registration, got %d", len(cron.registrations))
	}
	if got := cron.registrations[0].config.Expression; got != "@every 10m" {
		t.Fatalf("expected resync cron expression override, got %q", got)
	}
	if cron.registrations[0].handler == nil {
		t.Fatalf("expected cron handler func")
	}
	if err := cron.registrations[0].handler(); err != nil {
		t.Fatalf("cron handler on empty directory: %v", err)
	}
}

func TestRegisterContainerCommandsWithoutSnippetDirectory(t *testing.T) {
	result, err := RegisterContainerCommands(newContainer(t, runtimeconfig.DefaultConfig()), RegistrationOptions{})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	if len(result.Subscriptions) != 0 {
		t.Fatalf("expected no dispatcher subscriptions without dispatcher, got %d", len(result.Subscriptions))
	}
	for _, handler := range result.Handlers {
		if _, ok := handler.(*snippetscmd.ScheduledImportHandler); ok {
			t.Fatal("expected no scheduled import without a snippet directory")
		}
	}
}

func TestRegisterContainerCommandsCollectsRegistryErrors(t *testing.T) {
	registry := &recordingRegistry{err: errors.New("boom")}
	result, err := RegisterContainerCommands(newContainer(t, runtimeconfig.DefaultConfig()), RegistrationOptions{Registry: registry})
	if err == nil {
		t.Fatalf("expected registry error")
	}
	if len(result.Handlers) == 0 {
		t.Fatalf("expected handlers to be returned alongside the error")
	}
}

func TestRegisterContainerCommandsNilContainer(t *testing.T) {
	result, err := RegisterContainerCommands(nil, RegistrationOptions{})
	if err != nil || len(result.Handlers) != 0 {
		t.Fatalf("expected empty result, got %+v %v", result, err)
	}
}

type recordingRegistry struct {
	handlers []any
	err      error
}

func (r *recordingRegistry) RegisterCommand(handler any) error {
	if r.err != nil {
		return r.err
	}
	r.handlers = append(r.handlers, handler)
	return nil
}

type recordingDispatcher struct {
	subscriptions []*recordingSubscription
}

func (d *recordingDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	sub := &recordingSubscription{handler: handler}
	d.subscriptions = append(d.subscriptions, sub)
	return sub, nil
}

type recordingSubscription struct {
	handler      any
	unsubscribed bool
}

func (s *recordingSubscription) Unsubscribe() {
	s.unsubscribed = true
}

type cronRegistration struct {
	config  command.HandlerConfig
	handler func() error
}

type recordingCron struct {
	registrations []cronRegistration
}

func (c *recordingCron) Registrar() CronRegistrar {
	return func(cfg command.HandlerConfig, handler any) error {
		var fn func() error
		if h, ok := handler.(func() error); ok {
			fn = h
		}
		c.registrations = append(c.registrations, cronRegistration{
			config:  cfg,
			handler: fn,
		})
		return nil
	}
}
