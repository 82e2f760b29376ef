package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digiman/pkg/status"
	"digiman/pkg/watchdog"
)

// newSyncCmd creates the "digiman sync" subcommand: one full ingestion pass.
func newSyncCmd() *cobra.Command {
	var syncType string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one ingestion pass now",
		Long:  "Pulls raw items from all configured sources, extracts action\nitems, and stores new suggestions. Already-processed items are\nskipped via the dedup ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.syncRunner().Run(context.Background(), syncType)
			if err != nil {
				var held *watchdog.LockHeldError
				if errors.As(err, &held) {
					return fmt.Errorf("sync already in progress (lock held for %s)", held.Age.Round(time.Second))
				}
				return err
			}

			outcome := "success"
			if run.Errors != "" {
				outcome = "error"
			}
			statusFile := status.NewFile(a.paths.StatusPath)
			if err := statusFile.RecordSync(syncType, outcome, run.ItemsExtracted, run.Errors); err != nil {
				a.log.Warn().Err(err).Msg("update status file")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "processed %d raw items, %d suggestions created\n",
				run.ItemsProcessed, run.ItemsExtracted)
			if run.Errors != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "errors: %s\n", run.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&syncType, "type", "full", "sync type recorded in history (full, nightly, manual)")
	return cmd
}
