package watchdog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LockHeldError reports that the run lock is already held. The guard
// resolves it to a skipped outcome; direct sync entry points surface it to
// the caller as "already in progress".
type LockHeldError struct {
	Path string
	Age  time.Duration
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("run lock %s held for %s", e.Path, e.Age.Round(time.Second))
}

// FileLock is the advisory run lock shared by the scheduled job and the
// watchdog: acquisition is create-if-absent, release is delete. The file's
// content is the holder's start time; its age drives stale reclamation.
type FileLock struct {
	Path string
}

// Acquire creates the lock file exclusively. Returns LockHeldError if it
// already exists.
func (l *FileLock) Acquire(now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o750); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		age, _, ageErr := l.Age(now)
		if ageErr != nil {
			age = 0
		}
		return &LockHeldError{Path: l.Path, Age: age}
	}
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.Path, err)
	}
	_, werr := f.WriteString(now.UTC().Format(time.RFC3339))
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("write lock %s: %w", l.Path, werr)
	}
	return cerr
}

// Age returns how long the lock has existed and whether it exists at all.
// The stamped content is authoritative; an unreadable stamp falls back to
// the file mtime.
func (l *FileLock) Age(now time.Time) (time.Duration, bool, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read lock %s: %w", l.Path, err)
	}
	if stamp, perr := time.Parse(time.RFC3339, string(data)); perr == nil {
		return now.Sub(stamp), true, nil
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return 0, false, fmt.Errorf("stat lock %s: %w", l.Path, err)
	}
	return now.Sub(info.ModTime()), true, nil
}

// Release removes the lock file. Idempotent: releasing an absent lock is
// not an error.
func (l *FileLock) Release() error {
	err := os.Remove(l.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.Path, err)
	}
	return nil
}
