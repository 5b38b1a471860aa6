package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/kocahmet1/ultrasat-progress/internal/jobs/recompute"
)

// NewRecomputeCommand creates the recompute command group.
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild subcategory progress and dashboard stats for every user",
		Long: `Replays every user's attempt history into subcategory progress and the
dashboard stats cache. Users are processed in small concurrent batches with a
pause between batches. Ctrl-C stops the run after the current batch.`,
	}
	cmd.AddCommand(newRecomputeRunCommand(rootOpts, recompute.ModeInitialize, "Recompute every user over the existing cache"))
	cmd.AddCommand(newRecomputeRunCommand(rootOpts, recompute.ModeRecreate, "Delete every cache record, then recompute every user"))
	return cmd
}

func newRecomputeRunCommand(rootOpts *RootOptions, mode recompute.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:           string(mode),
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecompute(rootOpts, cmd, mode)
		},
	}
}

func runRecompute(opts *RootOptions, cmd *cobra.Command, mode recompute.Mode) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	backend, err := opts.open(ctx, "recompute")
	if err != nil {
		return fail(formatter, setupOrFailure("open store", err))
	}
	defer backend.Close()

	formatter.VerboseLog("recompute: mode=%s", mode)
	sum, err := backend.Recompute(ctx, mode)
	if err != nil {
		return fail(formatter, setupOrFailure("recompute "+string(mode), err))
	}
	return formatter.Report(sum, func(w io.Writer) { writeRecomputeReport(w, sum) })
}
