// Package watchdog decides whether the daily sync is missing and must be
// forced as a catch-up. The daily job is scheduled for a fixed time, but
// the host may be asleep then; this guard runs every few minutes (and once
// on wake) and triggers the orchestrator when a day would otherwise be
// lost. A file lock with stale reclamation keeps the guard and the
// scheduled job from double-running.
package watchdog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"digiman/pkg/todo"
)

// Outcome is the result of one watchdog check.
type Outcome string

// Outcome constants.
const (
	SkippedAlreadySynced Outcome = "skipped_already_synced"
	SkippedInProgress    Outcome = "skipped_in_progress"
	SkippedOutsideWindow Outcome = "skipped_outside_window"
	TriggeredSuccess     Outcome = "triggered_success"
	TriggeredFailure     Outcome = "triggered_failure"
)

// Defaults for the guard's tunables. The staleness threshold trades
// "still running" against "abandoned lock" assumptions; there is no
// universally correct value, so it stays configuration.
const (
	DefaultStaleAfter  = 30 * time.Minute
	DefaultWindowStart = 2  // catch-up window opens at 02:00
	DefaultWindowEnd   = 10 // and closes before 10:00
)

// Runner is the sync entry point the guard triggers. Satisfied by
// *ingest.Orchestrator.
type Runner interface {
	Run(ctx context.Context, syncType string) (todo.SyncRun, error)
}

// Probe is the pre-flight dependency check run before a catch-up trigger.
type Probe interface {
	Available(ctx context.Context) bool
}

// Guard holds the pieces of the catch-up decision. Zero-valued tunables
// fall back to the defaults above.
type Guard struct {
	History     *todo.History
	Lock        *FileLock
	Probe       Probe
	Runner      Runner
	StaleAfter  time.Duration
	WindowStart int
	WindowEnd   int
	Log         zerolog.Logger
}

// CheckAndMaybeTrigger runs one watchdog decision at the given time.
// Calling it repeatedly within the same quarter-hour is safe: after the
// first successful trigger the already-synced or in-progress check
// short-circuits every later call.
func (g *Guard) CheckAndMaybeTrigger(ctx context.Context, now time.Time) (Outcome, error) {
	// 1. A successful sync today means nothing to do, regardless of lock
	// state or hour.
	last, err := g.History.LastSuccessful(ctx)
	if err != nil {
		return TriggeredFailure, err
	}
	if last != nil && sameDay(last.CompletedAt, now) {
		return SkippedAlreadySynced, nil
	}

	// 2. Respect a live lock; reclaim an abandoned one. A holder that
	// crashed without releasing must not block catch-up forever.
	stale := g.StaleAfter
	if stale <= 0 {
		stale = DefaultStaleAfter
	}
	age, held, err := g.Lock.Age(now)
	if err != nil {
		return TriggeredFailure, err
	}
	if held {
		if age < stale {
			return SkippedInProgress, nil
		}
		g.Log.Warn().Str("lock", g.Lock.Path).Dur("age", age).Msg("reclaiming stale run lock")
		if err := g.Lock.Release(); err != nil {
			return TriggeredFailure, err
		}
	}

	// 3. Never force-run outside the catch-up window; the scheduled job
	// owns its own slot and users should not see a surprise sync at an
	// arbitrary hour.
	if !g.inWindow(now) {
		return SkippedOutsideWindow, nil
	}

	// 4. Trigger, holding the lock for the duration no matter how we exit.
	if err := g.Lock.Acquire(now); err != nil {
		var held *LockHeldError
		if errors.As(err, &held) {
			return SkippedInProgress, nil
		}
		return TriggeredFailure, err
	}
	defer func() {
		if err := g.Lock.Release(); err != nil {
			g.Log.Error().Err(err).Msg("release run lock")
		}
	}()

	if g.Probe != nil && !g.Probe.Available(ctx) {
		g.Log.Warn().Msg("pre-flight check failed, extraction backend unreachable")
		return TriggeredFailure, nil
	}

	g.Log.Info().Time("now", now).Msg("triggering catch-up sync")
	run, err := g.Runner.Run(ctx, "watchdog")
	if err != nil {
		return TriggeredFailure, err
	}
	if run.Errors != "" {
		return TriggeredFailure, nil
	}
	return TriggeredSuccess, nil
}

func (g *Guard) inWindow(now time.Time) bool {
	start := g.WindowStart
	end := g.WindowEnd
	if start == 0 && end == 0 {
		start, end = DefaultWindowStart, DefaultWindowEnd
	}
	h := now.Hour()
	return h >= start && h < end
}

// sameDay reports whether the RFC3339 timestamp falls on now's calendar day,
// compared in now's location so "today" means the user's today.
func sameDay(stamp string, now time.Time) bool {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return false
	}
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.YearDay() == now.YearDay()
}
