package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// ExitInterrupted is the exit status for a run cancelled by SIGINT, the
// usual shell convention.
const ExitInterrupted = 130

// Execute builds the command tree and runs it with args. Logging goes to
// stderr at info level; --verbose (-v) switches to debug. A failure is
// printed to stderr with a remedy when one is known.
func Execute(ctx context.Context, stderr io.Writer, args []string) error {
	var verbose bool

	c := New(stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetErr(stderr)
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		if loadConfig != nil {
			return loadConfig(cmd, args)
		}
		return nil
	}

	err := root.ExecuteContext(ctx)
	if err != nil {
		c.Logger.Debug("command failed", "err", err)
		reportError(stderr, err)
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return 1
	}
}
