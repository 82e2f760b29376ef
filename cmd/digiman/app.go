package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"digiman/internal/config"
	"digiman/pkg/extract"
	"digiman/pkg/ingest"
	"digiman/pkg/source"
	"digiman/pkg/todo"
	"digiman/pkg/watchdog"
)

// app bundles everything a subcommand needs: resolved paths, config, the
// open database, and the assembled pipeline.
type app struct {
	paths   *Paths
	cfg     config.Config
	db      *sql.DB
	log     zerolog.Logger
	store   *todo.Store
	ledger  *todo.Ledger
	history *todo.History
}

// openApp resolves paths and config and opens the task database. Callers
// must defer a.Close().
func openApp() (*app, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(paths.Home, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := openTaskDB(paths.DBPath)
	if err != nil {
		return nil, err
	}

	return &app{
		paths:   paths,
		cfg:     cfg,
		db:      db,
		log:     newLogger(paths.LogDir),
		store:   todo.NewStore(db),
		ledger:  todo.NewLedger(db),
		history: todo.NewHistory(db),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// orchestrator assembles the sync pipeline from config. Adapters without
// credentials are left out rather than configured to fail.
func (a *app) orchestrator() *ingest.Orchestrator {
	var adapters []source.Adapter
	if a.cfg.Granola.CachePath != "" {
		adapters = append(adapters, source.NewGranola(a.cfg.Granola.CachePath))
	}
	if a.cfg.Slack.BotToken != "" && a.cfg.Slack.UserID != "" {
		adapters = append(adapters, source.NewSlack(a.cfg.Slack.BotToken, a.cfg.Slack.UserID))
	}

	return &ingest.Orchestrator{
		Store:     a.store,
		Ledger:    a.ledger,
		History:   a.history,
		Adapters:  adapters,
		Extractor: a.extractor(),
		Lookback:  a.cfg.Lookback(),
		Log:       a.log,
	}
}

// syncRunner wraps the orchestrator with the run lock so a manual or
// scheduled sync cannot double-run against a watchdog catch-up.
func (a *app) syncRunner() *watchdog.LockedRunner {
	return &watchdog.LockedRunner{
		Lock:       &watchdog.FileLock{Path: a.paths.LockPath},
		Runner:     a.orchestrator(),
		StaleAfter: a.cfg.StaleAfter(),
		Log:        a.log,
	}
}

func (a *app) extractor() *extract.OpenAI {
	return extract.NewOpenAI(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Model)
}

// newLogger writes console-formatted log lines to logs/digiman.log,
// falling back to stderr when the log directory cannot be created.
func newLogger(logDir string) zerolog.Logger {
	filePerms := 0o644
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}).With().Timestamp().Logger()
	}
	logFile, err := os.OpenFile(filepath.Join(logDir, "digiman.log"),
		os.O_RDWR|os.O_CREATE|os.O_APPEND, fs.FileMode(filePerms))
	if err != nil {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out: logFile, TimeFormat: "2006-01-02 15:04:05", NoColor: true,
	}).With().Timestamp().Logger()
}
