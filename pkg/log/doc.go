// Package log provides the bot's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that feeds our formatter and
// output pipeline, so output stays consistent across the codebase while the
// slog ecosystem remains reachable.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("sos"))
//	l.Info("session opened", log.Uint64("event_id", 42))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config with a level and a
// text/json format. RedirectStdLog routes standard library logs (used by
// Pebble) through the facade.
package log
