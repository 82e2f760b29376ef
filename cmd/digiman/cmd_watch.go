package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// cacheDebounce coalesces the burst of writes Granola makes when it
// flushes its cache into a single watchdog check.
const cacheDebounce = 2 * time.Second

// newWatchCmd creates the "digiman watch" subcommand: a foreground daemon
// that runs the watchdog check on a fixed tick and whenever the Granola
// cache file changes.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the watchdog continuously, reacting to cache changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if pid, err := ReadPIDFile(a.paths.PIDPath); err == nil && IsProcessAlive(pid) {
				return fmt.Errorf("watch daemon already running (pid %d)", pid)
			}
			if err := WritePIDFile(a.paths.PIDPath, os.Getpid()); err != nil {
				return err
			}

			ctx, cleanup := SetupSignalHandler(cmd.Context(), a.paths.PIDPath)
			defer cleanup()

			return runWatchLoop(ctx, a)
		},
	}
}

// runWatchLoop blocks until ctx is cancelled. Every tick it runs one
// watchdog check; file events on the Granola cache trigger an extra check
// after a short debounce.
func runWatchLoop(ctx context.Context, a *app) error {
	tick := time.Duration(a.cfg.Watchdog.TickMinutes) * time.Minute
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	watcher := watchCacheDir(a)
	var events chan fsnotify.Event
	if watcher != nil {
		defer watcher.Close()
		events = make(chan fsnotify.Event, 1)
		go forwardCacheEvents(ctx, a, watcher, events)
	}

	a.log.Info().Dur("tick", tick).Msg("watch daemon started")
	checkOnce(ctx, a)

	debounce := newDebounceTimer()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("watch daemon stopping")
			return nil
		case <-ticker.C:
			checkOnce(ctx, a)
		case <-events:
			resetDebounceTimer(debounce, cacheDebounce)
		case <-debounce.C:
			a.log.Debug().Msg("cache changed")
			checkOnce(ctx, a)
		}
	}
}

func checkOnce(ctx context.Context, a *app) {
	outcome, err := a.guard().CheckAndMaybeTrigger(ctx, time.Now())
	if err != nil {
		a.log.Error().Err(err).Str("outcome", string(outcome)).Msg("watchdog check")
	}
	recordWatchdogOutcome(a, outcome)
}

// watchCacheDir watches the directory containing the Granola cache file.
// Granola replaces the file atomically, so watching the file itself would
// lose the watch on every flush. Returns nil when the directory does not
// exist or the watcher cannot be created; the daemon falls back to
// tick-only mode.
func watchCacheDir(a *app) *fsnotify.Watcher {
	dir := filepath.Dir(a.cfg.Granola.CachePath)
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		a.log.Warn().Err(err).Msg("create cache watcher, falling back to tick-only")
		return nil
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		a.log.Warn().Err(err).Str("dir", dir).Msg("watch cache dir, falling back to tick-only")
		return nil
	}
	return watcher
}

// forwardCacheEvents filters watcher events down to writes of the cache
// file itself and forwards them without blocking.
func forwardCacheEvents(ctx context.Context, a *app, watcher *fsnotify.Watcher, out chan<- fsnotify.Event) {
	cachePath := a.cfg.Granola.CachePath
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != cachePath {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			select {
			case out <- event:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			a.log.Warn().Err(err).Msg("cache watcher error")
		}
	}
}

func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetDebounceTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
