package watchdog //nolint:testpackage // shares the fake runner with the guard tests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"digiman/pkg/todo"
)

func newTestLockedRunner(t *testing.T, runner Runner) *LockedRunner {
	t.Helper()
	return &LockedRunner{
		Lock:   &FileLock{Path: filepath.Join(t.TempDir(), "sync.lock")},
		Runner: runner,
		Log:    zerolog.Nop(),
	}
}

func TestLockedRunnerRunsAndReleases(t *testing.T) {
	runner := &fakeRunner{run: todo.SyncRun{ItemsProcessed: 3}}
	r := newTestLockedRunner(t, runner)

	run, err := r.Run(context.Background(), "nightly")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("runner called %d times, want 1", runner.calls)
	}
	if run.SyncType != "nightly" || run.ItemsProcessed != 3 {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if _, err := os.Stat(r.Lock.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock not released after run: %v", err)
	}
}

func TestLockedRunnerRefusesLiveLock(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestLockedRunner(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	if err := r.Lock.Acquire(now.Add(-10 * time.Minute)); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	r.Now = func() time.Time { return now }

	_, err := r.Run(context.Background(), "full")
	var held *LockHeldError
	if !errors.As(err, &held) {
		t.Fatalf("want LockHeldError, got %v", err)
	}
	if held.Age != 10*time.Minute {
		t.Fatalf("held.Age = %s, want 10m", held.Age)
	}
	if runner.calls != 0 {
		t.Fatalf("runner invoked despite live lock")
	}
	if _, err := os.Stat(r.Lock.Path); err != nil {
		t.Fatalf("live lock must stay in place: %v", err)
	}
}

func TestLockedRunnerReclaimsStaleLock(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestLockedRunner(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	if err := r.Lock.Acquire(now.Add(-31 * time.Minute)); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	r.Now = func() time.Time { return now }

	if _, err := r.Run(context.Background(), "full"); err != nil {
		t.Fatalf("run after stale reclaim: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("runner called %d times, want 1", runner.calls)
	}
	if _, err := os.Stat(r.Lock.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock not released after run: %v", err)
	}
}

func TestLockedRunnerReleasesOnRunError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("backend down")}
	r := newTestLockedRunner(t, runner)

	if _, err := r.Run(context.Background(), "full"); err == nil {
		t.Fatal("expected run error")
	}
	if _, err := os.Stat(r.Lock.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock not released after failed run: %v", err)
	}
}

func TestLockedRunnerHoldsLockDuringRun(t *testing.T) {
	r := newTestLockedRunner(t, nil)
	sawLock := false
	r.Runner = runnerFunc(func(ctx context.Context, syncType string) (todo.SyncRun, error) {
		_, err := os.Stat(r.Lock.Path)
		sawLock = err == nil
		return todo.SyncRun{}, nil
	})

	if _, err := r.Run(context.Background(), "full"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sawLock {
		t.Fatal("lock absent while runner executed")
	}
}
