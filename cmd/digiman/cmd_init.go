package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigTOML = `# digiman configuration

[granola]
# cache_path = "~/Library/Application Support/Granola/cache-v3.json"

[slack]
# bot_token = "xoxb-..."     # or DIGIMAN_SLACK_BOT_TOKEN
# user_id = "U..."           # or DIGIMAN_SLACK_USER_ID
# push_channel = "C..."

[openai]
# api_key = "sk-..."         # or OPENAI_API_KEY
# model = "gpt-4o-mini"

[sync]
lookback_hours = 24

[watchdog]
stale_minutes = 30
window_start_hour = 2
window_end_hour = 10
tick_minutes = 15

[server]
listen_addr = "127.0.0.1:5050"
`

// newInitCmd creates the "digiman init" subcommand.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the state directory, database, and config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			if err := os.MkdirAll(paths.Home, 0o750); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}
			if err := os.MkdirAll(paths.LogDir, 0o750); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}

			db, err := openTaskDB(paths.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := os.Stat(paths.ConfigPath); os.IsNotExist(err) {
				if err := os.WriteFile(paths.ConfigPath, []byte(defaultConfigTOML), 0o600); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", paths.ConfigPath)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", paths.Home)
			return nil
		},
	}
}
