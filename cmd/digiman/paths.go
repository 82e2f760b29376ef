package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// stateDirName is the directory under $HOME holding all digiman state.
const stateDirName = ".digiman"

// Paths holds all resolved digiman state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	Home       string // ~/.digiman or DIGIMAN_HOME
	DBPath     string // todos.db or DIGIMAN_DB_PATH
	ConfigPath string // config.toml
	LockPath   string // sync.lock or DIGIMAN_LOCK_PATH
	StatusPath string // cron_status.json
	PIDPath    string // watch.pid
	LogDir     string // logs/
}

// ResolvePaths returns all digiman paths, respecting env var overrides.
// Environment variables:
//   - DIGIMAN_HOME: base directory for all state (default: ~/.digiman)
//   - DIGIMAN_DB_PATH: task database (default: $DIGIMAN_HOME/todos.db)
//   - DIGIMAN_LOCK_PATH: sync run lock (default: $DIGIMAN_HOME/sync.lock)
func ResolvePaths() (*Paths, error) {
	home, err := resolveHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		Home:       home,
		DBPath:     resolvePathWithEnv("DIGIMAN_DB_PATH", home, "todos.db"),
		ConfigPath: filepath.Join(home, "config.toml"),
		LockPath:   resolvePathWithEnv("DIGIMAN_LOCK_PATH", home, "sync.lock"),
		StatusPath: filepath.Join(home, "cron_status.json"),
		PIDPath:    filepath.Join(home, "watch.pid"),
		LogDir:     filepath.Join(home, "logs"),
	}, nil
}

func resolveHome() (string, error) {
	if v := os.Getenv("DIGIMAN_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, stateDirName), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
