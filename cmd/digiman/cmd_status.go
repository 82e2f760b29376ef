package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "digiman status" subcommand: a quick terminal
// summary of pipeline health and pending work.
func newStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent syncs and pending work",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			last, err := a.history.LastSuccessful(ctx)
			if err != nil {
				return err
			}
			if last == nil {
				fmt.Fprintln(out, "Last successful sync: never")
			} else {
				fmt.Fprintf(out, "Last successful sync: %s (%s, %d extracted)\n",
					last.CompletedAt, last.SyncType, last.ItemsExtracted)
			}

			suggestions, err := a.store.Suggestions(ctx)
			if err != nil {
				return err
			}
			view, err := a.store.Today(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Suggestions awaiting triage: %d\n", len(suggestions))
			fmt.Fprintf(out, "Overdue: %d  Due today: %d  This week: %d\n",
				len(view.Overdue), len(view.Today), len(view.ThisWeek))

			runs, err := a.history.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nRecent runs:")
			for _, run := range runs {
				result := "ok"
				switch {
				case run.CompletedAt == "":
					result = "in progress"
				case run.Errors != "":
					result = "error: " + run.Errors
				}
				fmt.Fprintf(out, "  %s  %-8s processed=%d extracted=%d  %s\n",
					run.StartedAt, run.SyncType, run.ItemsProcessed, run.ItemsExtracted, result)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of recent runs to show")
	return cmd
}
