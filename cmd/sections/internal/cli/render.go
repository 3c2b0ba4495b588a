package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	sections "github.com/goliatone/go-sections"
	"github.com/goliatone/go-sections/internal/templates"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	template string
	instance string
	id       string
	tenant   string
	out      string
	expose   bool
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{id: "preview", tenant: "cli"}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a section instance against a template file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.template == "" || opts.instance == "" {
				return fmt.Errorf("--template and --instance are required")
			}
			html, err := runRender(cmd.Context(), opts)
			if err != nil {
				if rejected, ok := templates.AsValidationError(err); ok {
					printRejection(cmd, rejected)
				}
				return err
			}
			if opts.out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), html)
				return nil
			}
			if err := atomic.WriteFile(opts.out, strings.NewReader(html)); err != nil {
				return fmt.Errorf("write %s: %w", opts.out, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.template, "template", "", "candidate template JSON file")
	cmd.Flags().StringVar(&opts.instance, "instance", "", "section instance JSON file")
	cmd.Flags().StringVar(&opts.id, "id", opts.id, "section instance id")
	cmd.Flags().StringVar(&opts.tenant, "tenant", opts.tenant, "tenant the template is stored under")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.expose, "expose-errors", false, "show evaluation errors in fallback markup")
	return cmd
}

func runRender(ctx context.Context, opts renderOpts) (string, error) {
	var candidate sections.Candidate
	if err := readJSON(opts.template, &candidate); err != nil {
		return "", err
	}
	var instance sections.SectionInstance
	if err := readJSON(opts.instance, &instance); err != nil {
		return "", err
	}

	cfg := sections.DefaultConfig()
	cfg.Render.ExposeErrors = opts.expose
	module, err := sections.NewWithContext(ctx, cfg, sections.WithLoggerProvider(quietProvider()))
	if err != nil {
		return "", err
	}
	defer module.Close()

	result, err := module.Submit(ctx, opts.tenant, candidate, "human")
	if err != nil {
		return "", err
	}
	if instance.Type == "" {
		instance.Type = result.Template.Type
	}
	return module.RenderSection(ctx, opts.tenant, instance, opts.id), nil
}
