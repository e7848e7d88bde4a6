package log

import (
	"bytes"
	"strings"
	"testing"
)

func newBufLogger(level Level) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(
		WithLevel(level),
		WithFormatter(&TextFormatter{DisableTimestamp: true}),
		WithOutput(NewWriterOutput(&buf)),
	)
	return l, &buf
}

func TestLevelGating(t *testing.T) {
	l, buf := newBufLogger(WarnLevel)
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	out := buf.String()
	if strings.Contains(out, "| d") || strings.Contains(out, "| i") {
		t.Fatalf("levels below warn leaked: %q", out)
	}
	if !strings.Contains(out, "WARN | w") || !strings.Contains(out, "ERROR | e") {
		t.Fatalf("missing warn/error lines: %q", out)
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	l, buf := newBufLogger(InfoLevel)
	l = l.With(Component("engine"), Uint64("event_id", 7))
	l.Info("opened", Str("kind", "water"))
	out := buf.String()
	for _, want := range []string{"component=engine", "event_id=7", "kind=water", "opened"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel, "info": InfoLevel, "warn": WarnLevel,
		"warning": WarnLevel, "error": ErrorLevel, "fatal": FatalLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(InfoLevel), WithFormatter(&JSONFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Info("hello", Int("n", 3))
	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"n":3`) {
		t.Fatalf("unexpected json output: %q", out)
	}
}
