package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digiman/pkg/todo"
)

// newAddCmd creates the "digiman add" subcommand for manual todos. Exactly
// one of --date, --week, --month may be set; none means backlog.
func newAddCmd() *cobra.Command {
	var (
		description string
		date        string
		week        string
		month       string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a todo directly, skipping triage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := timelineFromFlags(date, week, month)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.store.Create(cmd.Context(), todo.CreateParams{
				Title:       args[0],
				Description: description,
				SourceType:  todo.SourceManual,
				Timeline:    tl,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", item.Title, describeTimeline(item.Timeline()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	cmd.Flags().StringVar(&date, "date", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&week, "week", "", "due week (YYYY-Wnn)")
	cmd.Flags().StringVar(&month, "month", "", "due month (YYYY-MM)")
	return cmd
}

func timelineFromFlags(date, week, month string) (todo.Timeline, error) {
	var tl todo.Timeline
	set := 0
	if date != "" {
		tl = todo.Timeline{Type: todo.TimelineDate, Value: date}
		set++
	}
	if week != "" {
		tl = todo.Timeline{Type: todo.TimelineWeek, Value: week}
		set++
	}
	if month != "" {
		tl = todo.Timeline{Type: todo.TimelineMonth, Value: month}
		set++
	}
	if set > 1 {
		return todo.Timeline{}, fmt.Errorf("--date, --week and --month are mutually exclusive")
	}
	if set == 0 {
		tl = todo.Timeline{Type: todo.TimelineBacklog}
	}
	if err := tl.Validate(); err != nil {
		return todo.Timeline{}, err
	}
	return tl, nil
}

func describeTimeline(tl todo.Timeline) string {
	if tl.Type == todo.TimelineBacklog {
		return "backlog"
	}
	return fmt.Sprintf("due %s", tl.Value)
}
