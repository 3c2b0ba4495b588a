package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	sections "github.com/goliatone/go-sections"
	"github.com/goliatone/go-sections/internal/templates"
)

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [candidate.json]",
		Short: "Check an authored template without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var candidate sections.Candidate
			if err := readJSON(args[0], &candidate); err != nil {
				return err
			}

			cfg := sections.DefaultConfig()
			cfg.Validation.StrictSettingTypes = strict
			module, err := sections.New(cfg, sections.WithLoggerProvider(quietProvider()))
			if err != nil {
				return err
			}
			defer module.Close()

			if err := module.Validate(candidate); err != nil {
				if rejected, ok := templates.AsValidationError(err); ok {
					printRejection(cmd, rejected)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "reject setting types without a registered variant")
	return cmd
}

func printRejection(cmd *cobra.Command, rejected *templates.ValidationError) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "rule %d failed at %s: %s\n", rejected.Rule, rejected.Path, rejected.Reason)
	for _, issue := range rejected.Issues {
		fmt.Fprintf(out, "  %s: %s\n", issue.Location, issue.Message)
	}
}
