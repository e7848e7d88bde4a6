package config

import (
	"os"
	"strconv"
)

// FromEnv overlays SOS_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("SOS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("SOS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SOS_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("SOS_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("SOS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SOS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SOS_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("SOS_TELEGRAM_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telegram.Enabled = b
		}
	}
	if v := os.Getenv("SOS_POLL_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Telegram.PollTimeoutSec = n
		}
	}
	if v := os.Getenv("SOS_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Retry.MaxAttempts = uint32(n)
		}
	}
}
