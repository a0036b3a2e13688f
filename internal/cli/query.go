package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newQueryCommand(opts *options) *cobra.Command {
	var submitterName string

	cmd := &cobra.Command{
		Use:   "query <jid>",
		Short: "Show the state of a spooled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jid, err := strconv.Atoi(args[0])
			if err != nil {
				return &ExitError{Code: 2, Message: fmt.Sprintf("invalid job id %q", args[0])}
			}

			a, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			status, err := a.Query(submitterName, jid)
			if err != nil {
				return err
			}

			fmt.Fprintf(opts.outW, "Job %d", status.JID)
			if status.Title != "" {
				fmt.Fprintf(opts.outW, " (%s)", status.Title)
			}
			fmt.Fprintln(opts.outW)
			if status.Owner != "" {
				fmt.Fprintf(opts.outW, "  owner:    %s\n", status.Owner)
			}
			fmt.Fprintf(opts.outW, "  priority: %g\n", status.Priority)
			fmt.Fprintf(opts.outW, "  paused:   %t\n", status.Paused)

			states := make([]string, 0, len(status.States))
			for state := range status.States {
				states = append(states, state)
			}
			sort.Strings(states)
			for _, state := range states {
				fmt.Fprintf(opts.outW, "  %-9s %d\n", state+":", status.States[state])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&submitterName, "submitter", "", "submitter whose engine to query")
	return cmd
}
