package log

import (
	stdlog "log"
	"strings"
)

// Config declaratively describes a logger.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// ApplyConfig builds a Logger from a Config. Unknown levels fail; unknown
// formats fall back to text.
func ApplyConfig(cfg *Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var f Formatter
	switch strings.ToLower(cfg.Format) {
	case "json":
		f = &JSONFormatter{}
	default:
		f = &TextFormatter{}
	}
	return NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewConsoleOutput())), nil
}

// stdWriter adapts a Logger to an io.Writer for stdlib log redirection.
type stdWriter struct {
	logger Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg)
	}
	return len(p), nil
}

// RedirectStdLog routes the standard library's default logger (used by
// Pebble among others) through the provided Logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: logger})
}
