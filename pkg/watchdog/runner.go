package watchdog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"digiman/pkg/todo"
)

// LockedRunner wraps a sync Runner with the run lock, so the scheduled
// "sync" entry point and the API's manual trigger arbitrate against a
// concurrent watchdog catch-up through the same file. Run fails with
// LockHeldError while another sync holds a live lock; an abandoned lock is
// reclaimed the same way the guard reclaims one.
type LockedRunner struct {
	Lock       *FileLock
	Runner     Runner
	StaleAfter time.Duration
	Log        zerolog.Logger
	Now        func() time.Time
}

func (r *LockedRunner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run acquires the lock, runs one sync pass, and releases the lock on
// every exit path.
func (r *LockedRunner) Run(ctx context.Context, syncType string) (todo.SyncRun, error) {
	now := r.now()

	stale := r.StaleAfter
	if stale <= 0 {
		stale = DefaultStaleAfter
	}
	age, held, err := r.Lock.Age(now)
	if err != nil {
		return todo.SyncRun{}, err
	}
	if held {
		if age < stale {
			return todo.SyncRun{}, &LockHeldError{Path: r.Lock.Path, Age: age}
		}
		r.Log.Warn().Str("lock", r.Lock.Path).Dur("age", age).Msg("reclaiming stale run lock")
		if err := r.Lock.Release(); err != nil {
			return todo.SyncRun{}, err
		}
	}

	if err := r.Lock.Acquire(now); err != nil {
		return todo.SyncRun{}, err
	}
	defer func() {
		if err := r.Lock.Release(); err != nil {
			r.Log.Error().Err(err).Msg("release run lock")
		}
	}()

	return r.Runner.Run(ctx, syncType)
}
