// Package config provides loading and environment overlay for the SOS
// service configuration. It exposes a Default() baseline, file loading
// (JSON or YAML by extension), and an SOS_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/sos-bot.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    // refuse to start
//	}
package config
