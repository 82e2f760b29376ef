package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digiman/internal/version"
)

// newRootCmd creates the root digiman command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "digiman",
		Short:         "Personal task-capture pipeline",
		Long:          "digiman captures action items from meeting notes and Slack,\nstores them as triageable suggestions, and schedules accepted\ntodos on a timeline.",
		Version:       fmt.Sprintf("digiman %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newInitCmd(),
		newSyncCmd(),
		newWatchdogCmd(),
		newWatchCmd(),
		newServeCmd(),
		newTriageCmd(),
		newAddCmd(),
		newStatusCmd(),
		newPushCmd(),
	)

	return cmd
}
