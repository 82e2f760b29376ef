package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digiman/pkg/status"
	"digiman/pkg/watchdog"
)

// newWatchdogCmd creates the "digiman watchdog" subcommand: a single
// catch-up decision, suitable for a cron/launchd every-15-minutes entry.
func newWatchdogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watchdog",
		Short: "Check whether today's sync is missing and trigger a catch-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.guard().CheckAndMaybeTrigger(context.Background(), time.Now())
			if err != nil {
				a.log.Error().Err(err).Str("outcome", string(outcome)).Msg("watchdog check")
			}
			recordWatchdogOutcome(a, outcome)

			fmt.Fprintln(cmd.OutOrStdout(), string(outcome))
			return err
		},
	}
}

// guard assembles the watchdog from config.
func (a *app) guard() *watchdog.Guard {
	return &watchdog.Guard{
		History:     a.history,
		Lock:        &watchdog.FileLock{Path: a.paths.LockPath},
		Probe:       a.extractor(),
		Runner:      a.orchestrator(),
		StaleAfter:  a.cfg.StaleAfter(),
		WindowStart: a.cfg.Watchdog.WindowStartHour,
		WindowEnd:   a.cfg.Watchdog.WindowEndHour,
		Log:         a.log,
	}
}

// recordWatchdogOutcome mirrors triggered outcomes into the status file so
// the menu bar shows catch-up runs too. Skips are not recorded; they happen
// every few minutes and would drown the history.
func recordWatchdogOutcome(a *app, outcome watchdog.Outcome) {
	if outcome != watchdog.TriggeredSuccess && outcome != watchdog.TriggeredFailure {
		return
	}
	result := "success"
	if outcome == watchdog.TriggeredFailure {
		result = "error"
	}
	statusFile := status.NewFile(a.paths.StatusPath)
	if err := statusFile.RecordSync("watchdog", result, 0, ""); err != nil {
		a.log.Warn().Err(err).Msg("update status file")
	}
}
