package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vk/farmspool/internal/app"
	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/wrapper"
)

func newWrapCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap -- <command> [args...]",
		Short: "Run an expanding farm command with its stdout reserved for subtask definitions",
		Long: `wrap executes a command whose standard output is parsed by the engine as
Alfred task definitions. The command's own output is diverted to stderr and a
dedicated descriptor, named by TRACTOR_SUBTASK_STDOUT_FD, carries the queued
subtasks through to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The wrapped command never needs the profile; only a logger.
			ctx := ctxlog.WithLogger(cmd.Context(), app.NewLogger(opts.logLevel, opts.logFormat, opts.errW))

			code, err := wrapper.Run(ctx, args, opts.outW, opts.errW)
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitError{Code: code, Message: fmt.Sprintf("wrapped command exited with code %d", code)}
			}
			return nil
		},
	}
	return cmd
}
