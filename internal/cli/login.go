package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <user>",
		Short: "Authenticate against the engine monitor",
		Long: `login opens a monitor session and stores it under ~/.farmspool, where later
query commands pick it up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Login(args[0], password); err != nil {
				return err
			}
			fmt.Fprintf(opts.outW, "Logged in to %s as %s.\n", a.Profile().EngineURL, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "monitor password; omit when the engine runs without one")
	return cmd
}
