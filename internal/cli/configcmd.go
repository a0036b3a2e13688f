package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved farm profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			p := a.Profile()

			fmt.Fprintf(opts.outW, "engine:            %s\n", p.EngineURL)
			fmt.Fprintf(opts.outW, "default submitter: %s\n", p.DefaultSubmitter)
			fmt.Fprintf(opts.outW, "default service:   %s\n", p.DefaultService)
			fmt.Fprintf(opts.outW, "script service:    %s\n", p.ScriptService)
			fmt.Fprintf(opts.outW, "default limits:    %s\n", strings.Join(p.DefaultLimits, ", "))
			fmt.Fprintf(opts.outW, "default shares:    %s\n", strings.Join(p.DefaultShares, ", "))
			fmt.Fprintf(opts.outW, "prod:              %s\n", p.Prod)
			if p.ScriptsDir != "" {
				fmt.Fprintf(opts.outW, "scripts dir:       %s\n", p.ScriptsDir)
			}

			fmt.Fprintln(opts.outW, "priorities:")
			names := make([]string, 0, len(p.Priorities))
			for name := range p.Priorities {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(opts.outW, "  %-8s %d\n", name, p.Priorities[name])
			}

			if len(p.Licenses) > 0 {
				fmt.Fprintln(opts.outW, "licences:")
				licences := make([]string, 0, len(p.Licenses))
				for name := range p.Licenses {
					licences = append(licences, name)
				}
				sort.Strings(licences)
				for _, name := range licences {
					fmt.Fprintf(opts.outW, "  %-10s -> %s\n", name, p.Licenses[name])
				}
			}
			return nil
		},
	}
	return cmd
}
