package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Execute runs cmd and returns the process exit code. Errors the commands
// have not already reported are written to stderr.
func Execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return GetExitCode(err)
}

// fail writes the error through the formatter and marks it reported.
func fail(f *OutputFormatter, exit *ExitError) error {
	code := "E_RUN"
	switch exit.Code {
	case ExitSetupError:
		code = "E_SETUP"
	case ExitCommandError:
		code = "E_USAGE"
	}
	_ = f.Error(code, exit.Error())
	exit.Reported = true
	return exit
}
