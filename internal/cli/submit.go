package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vk/farmspool/internal/submitter"
)

func newSubmitCommand(opts *options) *cobra.Command {
	var (
		submitterName string
		label         string
		priority      string
		shares        []string
		excludeHosts  []string
		paused        bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "submit <project.mg>",
		Short: "Build a farm job from a project file and spool it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}

			result, err := a.Submit(args[0], submitterName, submitter.Options{
				Label:        label,
				Priority:     priority,
				Shares:       shares,
				ExcludeHosts: excludeHosts,
				Paused:       paused,
				DryRun:       dryRun,
			})
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprint(opts.outW, result.Script)
				return nil
			}
			fmt.Fprintf(opts.outW, "Job %d spooled.\n%s\n", result.JID, result.URL)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&submitterName, "submitter", "", "submitter to use (default: $MESHROOM_DEFAULT_SUBMITTER)")
	f.StringVar(&label, "label", "", "job title; {projectName} expands to the project's base name")
	f.StringVar(&priority, "priority", "", "symbolic priority: low, normal or high")
	f.StringSliceVar(&shares, "share", nil, "farm share(s) to bill the job to")
	f.StringSliceVar(&excludeHosts, "exclude-host", nil, "blade host(s) to keep the job away from")
	f.BoolVar(&paused, "paused", false, "spool the job in the paused state")
	f.BoolVar(&dryRun, "dry-run", false, "print the job script instead of spooling it")
	return cmd
}
