package watchdog //nolint:testpackage // white-box tests for inWindow and sameDay

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"digiman/pkg/todo"
)

type fakeRunner struct {
	run   todo.SyncRun
	err   error
	calls int
}

func (f *fakeRunner) Run(_ context.Context, syncType string) (todo.SyncRun, error) {
	f.calls++
	run := f.run
	run.SyncType = syncType
	return run, f.err
}

type fakeProbe struct{ up bool }

func (f *fakeProbe) Available(_ context.Context) bool { return f.up }

func setupHistory(t *testing.T) *todo.History {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(todo.SchemaDDL); err != nil {
		t.Fatalf("exec schema: %v", err)
	}
	return todo.NewHistory(db)
}

func newTestGuard(t *testing.T, runner *fakeRunner) *Guard {
	t.Helper()
	return &Guard{
		History: setupHistory(t),
		Lock:    &FileLock{Path: filepath.Join(t.TempDir(), "sync.lock")},
		Probe:   &fakeProbe{up: true},
		Runner:  runner,
		Log:     zerolog.Nop(),
	}
}

// recordSuccess completes a clean run at the given wall-clock time.
func recordSuccess(t *testing.T, h *todo.History, at time.Time) {
	t.Helper()
	h.Now = func() time.Time { return at }
	ctx := context.Background()
	id, err := h.Start(ctx, "full")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Complete(ctx, id, 1, 1, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestGuard_SkipsWhenAlreadySyncedToday(t *testing.T) {
	runner := &fakeRunner{}
	g := newTestGuard(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	recordSuccess(t, g.History, now.Add(-30*time.Minute))

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != SkippedAlreadySynced {
		t.Errorf("outcome = %s", outcome)
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times", runner.calls)
	}
}

func TestGuard_YesterdaysSyncDoesNotCount(t *testing.T) {
	runner := &fakeRunner{}
	g := newTestGuard(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	recordSuccess(t, g.History, now.Add(-24*time.Hour))

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != TriggeredSuccess {
		t.Errorf("outcome = %s", outcome)
	}
	if runner.calls != 1 {
		t.Errorf("runner called %d times", runner.calls)
	}
}

func TestGuard_FreshLockMeansInProgress(t *testing.T) {
	runner := &fakeRunner{}
	g := newTestGuard(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	if err := g.Lock.Acquire(now.Add(-10 * time.Minute)); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != SkippedInProgress {
		t.Errorf("outcome = %s", outcome)
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times", runner.calls)
	}
	// The lock stays: it belongs to the live holder.
	if _, held, _ := g.Lock.Age(now); !held {
		t.Error("live lock was removed")
	}
}

func TestGuard_StaleLockIsReclaimed(t *testing.T) {
	runner := &fakeRunner{}
	g := newTestGuard(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	if err := g.Lock.Acquire(now.Add(-31 * time.Minute)); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != TriggeredSuccess {
		t.Errorf("outcome = %s", outcome)
	}
	if runner.calls != 1 {
		t.Errorf("runner called %d times", runner.calls)
	}
	// The trigger's own lock is released on the way out.
	if _, held, _ := g.Lock.Age(now); held {
		t.Error("lock left behind after trigger")
	}
}

func TestGuard_OutsideWindow(t *testing.T) {
	for _, hour := range []int{0, 1, 10, 14, 23} {
		runner := &fakeRunner{}
		g := newTestGuard(t, runner)
		now := time.Date(2026, 3, 4, hour, 30, 0, 0, time.UTC)

		outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
		if err != nil {
			t.Fatalf("hour %d: %v", hour, err)
		}
		if outcome != SkippedOutsideWindow {
			t.Errorf("hour %d: outcome = %s", hour, outcome)
		}
		if runner.calls != 0 {
			t.Errorf("hour %d: runner called", hour)
		}
	}
}

func TestGuard_WindowBoundaries(t *testing.T) {
	// 02:00 is inside, 09:59 is inside, 10:00 is out.
	for _, tc := range []struct {
		hour, minute int
		want         Outcome
	}{
		{2, 0, TriggeredSuccess},
		{9, 59, TriggeredSuccess},
		{10, 0, SkippedOutsideWindow},
	} {
		runner := &fakeRunner{}
		g := newTestGuard(t, runner)
		now := time.Date(2026, 3, 4, tc.hour, tc.minute, 0, 0, time.UTC)

		outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
		if err != nil {
			t.Fatalf("%02d:%02d: %v", tc.hour, tc.minute, err)
		}
		if outcome != tc.want {
			t.Errorf("%02d:%02d: outcome = %s, want %s", tc.hour, tc.minute, outcome, tc.want)
		}
	}
}

func TestGuard_ProbeFailureIsTriggeredFailure(t *testing.T) {
	runner := &fakeRunner{}
	g := newTestGuard(t, runner)
	g.Probe = &fakeProbe{up: false}
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != TriggeredFailure {
		t.Errorf("outcome = %s", outcome)
	}
	if runner.calls != 0 {
		t.Error("runner called despite failed pre-flight")
	}
	if _, held, _ := g.Lock.Age(now); held {
		t.Error("lock left behind after probe failure")
	}
}

func TestGuard_RunErrorsAreTriggeredFailure(t *testing.T) {
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	// Runner returns an infrastructure error.
	runner := &fakeRunner{err: errors.New("db locked")}
	g := newTestGuard(t, runner)
	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err == nil {
		t.Error("infrastructure error swallowed")
	}
	if outcome != TriggeredFailure {
		t.Errorf("outcome = %s", outcome)
	}

	// Runner completes but with captured source errors.
	runner = &fakeRunner{run: todo.SyncRun{Errors: "slack: rate limited"}}
	g = newTestGuard(t, runner)
	outcome, err = g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != TriggeredFailure {
		t.Errorf("outcome = %s", outcome)
	}
}

func TestGuard_LockHeldDuringRun(t *testing.T) {
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	g := newTestGuard(t, nil)

	var heldDuringRun bool
	g.Runner = runnerFunc(func(ctx context.Context, syncType string) (todo.SyncRun, error) {
		_, held, err := g.Lock.Age(now)
		if err != nil {
			return todo.SyncRun{}, err
		}
		heldDuringRun = held
		return todo.SyncRun{}, nil
	})

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != TriggeredSuccess {
		t.Errorf("outcome = %s", outcome)
	}
	if !heldDuringRun {
		t.Error("lock not held while the sync ran")
	}
	if _, held, _ := g.Lock.Age(now); held {
		t.Error("lock not released after the sync")
	}
}

type runnerFunc func(ctx context.Context, syncType string) (todo.SyncRun, error)

func (f runnerFunc) Run(ctx context.Context, syncType string) (todo.SyncRun, error) {
	return f(ctx, syncType)
}

func TestSameDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2026-03-04T02:00Z is still 2026-03-03 in Los Angeles.
	now := time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC).In(loc)
	if sameDay("2026-03-04T01:00:00Z", now) {
		t.Error("UTC day matched instead of local day")
	}
	if !sameDay("2026-03-03T20:00:00Z", now) {
		t.Error("same local day not recognized")
	}
	if sameDay("not a timestamp", now) {
		t.Error("garbage stamp treated as today")
	}
}

func TestGuard_RepeatedChecksAfterTrigger(t *testing.T) {
	runner := &fakeRunner{}
	g := newTestGuard(t, runner)
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)
	ctx := context.Background()

	outcome, err := g.CheckAndMaybeTrigger(ctx, now)
	if err != nil || outcome != TriggeredSuccess {
		t.Fatalf("first check: %s, %v", outcome, err)
	}

	// The fake runner records nothing in history, so a real orchestrator's
	// history write is simulated here.
	recordSuccess(t, g.History, now)

	outcome, err = g.CheckAndMaybeTrigger(ctx, now.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if outcome != SkippedAlreadySynced {
		t.Errorf("second check outcome = %s", outcome)
	}
	if runner.calls != 1 {
		t.Errorf("runner called %d times", runner.calls)
	}
}

func TestGuard_LockDirectoryCreated(t *testing.T) {
	g := newTestGuard(t, &fakeRunner{})
	g.Lock.Path = filepath.Join(t.TempDir(), "nested", "sync.lock")
	now := time.Date(2026, 3, 4, 3, 0, 0, 0, time.UTC)

	outcome, err := g.CheckAndMaybeTrigger(context.Background(), now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome != TriggeredSuccess {
		t.Errorf("outcome = %s", outcome)
	}
	if _, err := os.Stat(filepath.Dir(g.Lock.Path)); err != nil {
		t.Errorf("lock dir: %v", err)
	}
}
