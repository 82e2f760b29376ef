package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"digiman/pkg/notify"
)

// newPushCmd creates the "digiman push" subcommand: send the morning
// summary to the configured Slack channel. Meant for an 8 AM cron entry.
func newPushCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push today's summary to Slack",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			view, err := a.store.Today(ctx)
			if err != nil {
				return err
			}
			suggestions, err := a.store.Suggestions(ctx)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), notify.FormatToday(view, len(suggestions)))
				return nil
			}

			if a.cfg.Slack.BotToken == "" || a.cfg.Slack.PushChannel == "" {
				return fmt.Errorf("slack bot_token and push_channel must be configured")
			}
			pusher := notify.NewSlackPusher(a.cfg.Slack.BotToken, a.cfg.Slack.PushChannel)
			if err := pusher.PushToday(ctx, view, len(suggestions)); err != nil {
				return err
			}
			a.log.Info().Str("channel", a.cfg.Slack.PushChannel).Msg("morning summary pushed")
			fmt.Fprintln(cmd.OutOrStdout(), "Pushed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the message instead of sending")
	return cmd
}
