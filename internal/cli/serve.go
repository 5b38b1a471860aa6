package cli

import (
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard read API and run scheduled recomputes",
		Long: `Starts the HTTP API on HTTP_ADDR. When RECOMPUTE_CRON is set, a full
recompute in RECOMPUTE_CRON_MODE also runs on that schedule.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			ctx := cmd.Context()

			backend, err := rootOpts.open(ctx, "api")
			if err != nil {
				return fail(formatter, setupOrFailure("open store", err))
			}
			defer backend.Close()

			if err := backend.Serve(ctx); err != nil {
				return fail(formatter, setupOrFailure("serve", err))
			}
			return nil
		},
	}
}
