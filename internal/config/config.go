package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr        string         `json:"httpAddr" yaml:"httpAddr"`
	DataDir         string         `json:"dataDir" yaml:"dataDir"`
	Fsync           string         `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int            `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	Log             LogConfig      `json:"log" yaml:"log"`
	Telegram        TelegramConfig `json:"telegram" yaml:"telegram"`
	Retry           RetryConfig    `json:"retry" yaml:"retry"`
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// TelegramConfig configures the chat gateway. When Enabled, Token must be
// set or the process refuses to start.
type TelegramConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	Token          string `json:"token" yaml:"token"`
	PollTimeoutSec int    `json:"pollTimeoutSec" yaml:"pollTimeoutSec"`
}

// RetryConfig shapes the fact-append retry queue.
type RetryConfig struct {
	BaseMs      int    `json:"baseMs" yaml:"baseMs"`
	CapMs       int    `json:"capMs" yaml:"capMs"`
	MaxAttempts uint32 `json:"maxAttempts" yaml:"maxAttempts"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		Fsync:           "interval",
		FsyncIntervalMs: 100,
		Log:             LogConfig{Level: "info", Format: "text"},
		Telegram:        TelegramConfig{PollTimeoutSec: 30},
		Retry:           RetryConfig{BaseMs: 200, CapMs: 30000, MaxAttempts: 8},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot run with.
func (c Config) Validate() error {
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("telegram gateway enabled but SOS_BOT_TOKEN is not set")
	}
	return nil
}
