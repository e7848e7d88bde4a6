package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("default http addr")
	}
	if cfg.Fsync != "interval" {
		t.Fatalf("default fsync mode")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("default log config")
	}
	if cfg.Retry.MaxAttempts != 8 {
		t.Fatalf("default retry budget")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sos-bot.json")
	data := []byte(`{"httpAddr":":9090","fsync":"always","log":{"level":"debug","format":"json"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.HTTPAddr)
	}
	if cfg.Fsync != "always" {
		t.Fatalf("expected always")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log overrides not applied")
	}
	// Untouched fields keep their defaults.
	if cfg.Retry.MaxAttempts != 8 {
		t.Fatalf("retry defaults lost on load")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sos-bot.yaml")
	data := []byte("httpAddr: \":7070\"\ntelegram:\n  enabled: true\n  token: test-token\n  pollTimeoutSec: 10\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("expected :7070, got %s", cfg.HTTPAddr)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.Token != "test-token" || cfg.Telegram.PollTimeoutSec != 10 {
		t.Fatalf("telegram section not applied: %+v", cfg.Telegram)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("SOS_HTTP_ADDR", ":6060")
	t.Setenv("SOS_LOG_LEVEL", "warn")
	t.Setenv("SOS_BOT_TOKEN", "env-token")
	t.Setenv("SOS_TELEGRAM_ENABLED", "true")
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":6060" {
		t.Fatalf("env override addr")
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env override level")
	}
	if cfg.Telegram.Token != "env-token" || !cfg.Telegram.Enabled {
		t.Fatalf("env override telegram")
	}
}

func TestValidateRequiresTokenWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without token")
	}
	cfg.Telegram.Token = "tok"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
