package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	sections "github.com/goliatone/go-sections"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/logging/console"
	"github.com/goliatone/go-sections/pkg/interfaces"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the preview HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := sections.DefaultConfig()
			if configPath != "" {
				loaded, err := sections.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg sections.Config) error {
	module, err := sections.NewWithContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer module.Close()

	container := module.Container()
	logger := logging.ModuleLogger(container.LoggerProvider(), "sections.cli")

	keys, err := container.ImportSnippets(ctx)
	if err != nil {
		return fmt.Errorf("import snippets: %w", err)
	}
	if len(keys) > 0 {
		logger.Info("serve.snippets.imported", "count", len(keys), "tenant_id", cfg.Snippets.Tenant)
	}

	scheduler, err := scheduleSnippetResync(container, logger)
	if err != nil {
		return fmt.Errorf("schedule snippet resync: %w", err)
	}

	handler, err := module.PreviewHandler()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("serve.listening", "addr", cfg.HTTP.Addr, "base_path", cfg.HTTP.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Snippets.Watch {
		group.Go(func() error {
			return container.WatchSnippets(ctx)
		})
	}
	if scheduler != nil {
		group.Go(func() error {
			return scheduler.run(ctx)
		})
	}
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("serve.stopped")
	return nil
}

// quietProvider logs warnings and above to stderr for one-shot commands.
func quietProvider() interfaces.LoggerProvider {
	level := console.LevelWarn
	return console.NewProvider(console.Options{Writer: os.Stderr, MinLevel: &level})
}
