package httpserver

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/aboly3304/sos-bot/internal/session"
)

// celFilter wraps a compiled CEL program used by the active-session listing.
// When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("event_id", cel.UintType),
		cel.Variable("chat_id", cel.IntType),
		cel.Variable("requester_id", cel.IntType),
		cel.Variable("status", cel.StringType),
		cel.Variable("helpers", cel.IntType),
		cel.Variable("requests", cel.IntType),
		cel.Variable("opened_at_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a session snapshot. When
// disabled, returns true. Evaluation errors exclude the session.
func (f celFilter) Eval(s *session.Session) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"event_id":     s.EventID,
		"chat_id":      s.ChatID,
		"requester_id": s.RequesterID,
		"status":       string(s.Status),
		"helpers":      int64(len(s.Helpers)),
		"requests":     int64(len(s.Requests)),
		"opened_at_ms": s.OpenedAt.UnixMilli(),
		"now_ms":       time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
