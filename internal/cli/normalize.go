package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewNormalizeCommand creates the normalize command group.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Convert legacy quizzes to the identifier-list format",
		Long: `Walks every stored quiz document. Legacy documents embedding full
question objects are rewritten to hold only question identifiers and a count.
Documents already in the new format are left untouched; documents whose
embedded questions carry no identifiers are reported and left unmigrated.`,
	}
	cmd.AddCommand(newNormalizeRunCommand(rootOpts, "preview", "Classify documents and estimate savings without writing", true))
	cmd.AddCommand(newNormalizeRunCommand(rootOpts, "apply", "Rewrite legacy documents in bounded batches", false))
	return cmd
}

func newNormalizeRunCommand(rootOpts *RootOptions, use, short string, dryRun bool) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(rootOpts, cmd, dryRun)
		},
	}
}

func runNormalize(opts *RootOptions, cmd *cobra.Command, dryRun bool) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	backend, err := opts.open(ctx, "normalize")
	if err != nil {
		return fail(formatter, setupOrFailure("open store", err))
	}
	defer backend.Close()

	formatter.VerboseLog("normalize: dry_run=%t", dryRun)
	sum, err := backend.Normalize(ctx, dryRun)
	if err != nil {
		return fail(formatter, setupOrFailure("normalize quizzes", err))
	}
	return formatter.Report(sum, func(w io.Writer) { writeNormalizeReport(w, sum) })
}
