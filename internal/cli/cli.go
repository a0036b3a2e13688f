// Package cli defines the farmspool command tree.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/vk/farmspool/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// options are the persistent flags shared by every subcommand.
type options struct {
	outW io.Writer
	errW io.Writer

	configPath string
	logLevel   string
	logFormat  string
}

// app builds the application from the persistent flags.
func (o *options) app(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.errW, app.Config{
		ConfigPath: o.configPath,
		LogLevel:   o.logLevel,
		LogFormat:  o.logFormat,
	})
}

// NewRootCommand assembles the farmspool command tree. Command output goes to
// outW, logs to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &options{outW: outW, errW: errW}

	root := &cobra.Command{
		Use:           "farmspool",
		Short:         "Submit compute-graph projects to the render farm",
		Long:          "farmspool turns Meshroom project files into Tractor jobs and spools them to the engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "profile file or directory (default: $MR_SUBMITTERS_CONFIGS)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "logging level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log output format: text or json")

	root.AddCommand(
		newSubmitCommand(opts),
		newQueryCommand(opts),
		newWrapCommand(opts),
		newLoginCommand(opts),
		newConfigCommand(opts),
	)
	return root
}
