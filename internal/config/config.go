// Package config loads digiman configuration from config.toml in the state
// directory, with environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full configuration tree.
type Config struct {
	Granola  Granola  `toml:"granola"`
	Slack    Slack    `toml:"slack"`
	OpenAI   OpenAI   `toml:"openai"`
	Sync     Sync     `toml:"sync"`
	Watchdog Watchdog `toml:"watchdog"`
	Server   Server   `toml:"server"`
}

// Granola configures the meeting-notes cache adapter.
type Granola struct {
	CachePath string `toml:"cache_path"`
}

// Slack configures the mention adapter and the morning push.
type Slack struct {
	BotToken    string `toml:"bot_token"`
	UserID      string `toml:"user_id"`
	PushChannel string `toml:"push_channel"`
}

// OpenAI configures the extraction backend.
type OpenAI struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Sync configures the orchestrator.
type Sync struct {
	LookbackHours int `toml:"lookback_hours"`
}

// Watchdog configures the catch-up guard. StaleMinutes trades a false
// "still running" against a false "abandoned lock"; there is no universally
// correct value.
type Watchdog struct {
	StaleMinutes    int `toml:"stale_minutes"`
	WindowStartHour int `toml:"window_start_hour"`
	WindowEndHour   int `toml:"window_end_hour"`
	TickMinutes     int `toml:"tick_minutes"`
}

// Server configures the local JSON API.
type Server struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Granola: Granola{
			CachePath: filepath.Join(home, "Library", "Application Support", "Granola", "cache-v3.json"),
		},
		Sync:     Sync{LookbackHours: 24},
		Watchdog: Watchdog{StaleMinutes: 30, WindowStartHour: 2, WindowEndHour: 10, TickMinutes: 15},
		Server:   Server{ListenAddr: "127.0.0.1:5050"},
	}
}

// Load reads the config file at path, applying defaults for absent fields
// and env overrides for secrets (DIGIMAN_SLACK_BOT_TOKEN,
// DIGIMAN_SLACK_USER_ID, OPENAI_API_KEY). A missing file is not an error;
// defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("DIGIMAN_SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("DIGIMAN_SLACK_USER_ID"); v != "" {
		cfg.Slack.UserID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	if cfg.Sync.LookbackHours <= 0 {
		cfg.Sync.LookbackHours = 24
	}
	if cfg.Watchdog.StaleMinutes <= 0 {
		cfg.Watchdog.StaleMinutes = 30
	}
	if cfg.Watchdog.TickMinutes <= 0 {
		cfg.Watchdog.TickMinutes = 15
	}
	return cfg, nil
}

// Lookback returns the orchestrator's lookback window as a duration.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.Sync.LookbackHours) * time.Hour
}

// StaleAfter returns the watchdog staleness threshold as a duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.Watchdog.StaleMinutes) * time.Minute
}
