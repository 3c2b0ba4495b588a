package cli

import (
	"context"
	"fmt"

	command "github.com/goliatone/go-command"
	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-sections/commands"
	"github.com/goliatone/go-sections/internal/di"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

// cronScheduler adapts robfig/cron to the command registrar hook.
type cronScheduler struct {
	cron   *cron.Cron
	logger interfaces.Logger
	jobs   int
}

func newCronScheduler(logger interfaces.Logger) *cronScheduler {
	return &cronScheduler{cron: cron.New(), logger: logger}
}

func (s *cronScheduler) register(cfg command.HandlerConfig, handler any) error {
	run, ok := handler.(func() error)
	if !ok {
		return fmt.Errorf("cron handler has unsupported type %T", handler)
	}
	expression := cfg.Expression
	_, err := s.cron.AddFunc(expression, func() {
		if err := run(); err != nil {
			s.logger.Error("serve.cron.failed", "expression", expression, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron expression %q: %w", expression, err)
	}
	s.jobs++
	return nil
}

// run blocks until ctx is done, then waits for in-flight jobs.
func (s *cronScheduler) run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("serve.cron.started", "jobs", s.jobs)
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// scheduleSnippetResync registers the container's cron commands when a
// resync expression is configured. A nil scheduler means nothing to run.
func scheduleSnippetResync(container *di.Container, logger interfaces.Logger) (*cronScheduler, error) {
	expression := container.Config.Snippets.Resync
	if expression == "" || container.Config.Snippets.Dir == "" {
		return nil, nil
	}
	scheduler := newCronScheduler(logger)
	if _, err := commands.RegisterContainerCommands(container, commands.RegistrationOptions{
		CronRegistrar:     scheduler.register,
		SnippetResyncCron: expression,
	}); err != nil {
		return nil, err
	}
	return scheduler, nil
}
