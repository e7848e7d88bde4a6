package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aboly3304/sos-bot/internal/runtime"
	sossvc "github.com/aboly3304/sos-bot/internal/services/sos"
	"github.com/aboly3304/sos-bot/internal/session"
	idgen "github.com/aboly3304/sos-bot/pkg/id"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	engine *sossvc.Service
	store  *session.Store
	ids    *idgen.Generator
	logger logpkg.Logger
	srv    *http.Server
	lis    net.Listener
}

func New(rt *runtime.Runtime, engine *sossvc.Service, store *session.Store, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("http"))
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, engine: engine, store: store, ids: idgen.NewGenerator(), logger: logger}
	s.srv = &http.Server{Handler: s.correlate(cors(mux))}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/sos/open", s.handleOpen)
	mux.HandleFunc("/v1/sos/request", s.handleRequest)
	mux.HandleFunc("/v1/sos/optin", s.handleOptIn)
	mux.HandleFunc("/v1/sos/helpers", s.handleHelpers)
	mux.HandleFunc("/v1/sos/resolve", s.handleResolve)
	mux.HandleFunc("/v1/sos/active", s.handleActive)
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// Handler exposes the configured handler for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// correlate tags each request with an id for log correlation. Inbound
// X-Request-Id is honored so callers can trace across hops.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		s.logger.Debug("http request",
			logpkg.Str("request_id", rid),
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidResourceKind):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrDuplicateEvent),
		errors.Is(err, session.ErrAlreadyClosed),
		errors.Is(err, session.ErrInactiveSession):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type openReq struct {
	EventID     uint64 `json:"event_id"`
	ChatID      int64  `json:"chat_id"`
	RequesterID int64  `json:"requester_id"`
}

type sessionView struct {
	EventID     uint64  `json:"event_id"`
	ChatID      int64   `json:"chat_id"`
	RequesterID int64   `json:"requester_id"`
	Status      string  `json:"status"`
	Helpers     []int64 `json:"helpers"`
	Requests    int     `json:"requests"`
	OpenedAtMs  int64   `json:"opened_at_ms"`
}

func viewOf(sess *session.Session) sessionView {
	helpers := sess.Helpers
	if helpers == nil {
		helpers = []int64{}
	}
	return sessionView{
		EventID:     sess.EventID,
		ChatID:      sess.ChatID,
		RequesterID: sess.RequesterID,
		Status:      string(sess.Status),
		Helpers:     helpers,
		Requests:    len(sess.Requests),
		OpenedAtMs:  sess.OpenedAt.UnixMilli(),
	}
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req openReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.ChatID == 0 || req.RequesterID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chat_id and requester_id are required"})
		return
	}
	eventID := req.EventID
	if eventID == 0 {
		eventID = s.ids.Next()
	}
	sess, err := s.engine.Open(r.Context(), eventID, req.ChatID, req.RequesterID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

type actionReq struct {
	EventID       uint64 `json:"event_id"`
	ParticipantID int64  `json:"participant_id"`
	Resource      string `json:"resource"`
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req actionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	kind, err := s.engine.RequestResource(r.Context(), req.EventID, req.ParticipantID, req.Resource)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resource": string(kind)})
}

func (s *Server) handleOptIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req actionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	res, err := s.engine.OptIn(r.Context(), req.EventID, req.ParticipantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"first": res.First, "helpers": res.Helpers})
}

func (s *Server) handleHelpers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	eventID, err := strconv.ParseUint(r.URL.Query().Get("event_id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	view, err := s.engine.ViewHelpers(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers := view.Helpers
	if helpers == nil {
		helpers = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"helpers": helpers, "closed": view.Closed})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req actionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.engine.Resolve(r.Context(), req.EventID, req.ParticipantID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, err := newCELFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	views := []sessionView{}
	for _, sess := range s.store.ListActive() {
		if filter.Eval(sess) {
			views = append(views, viewOf(sess))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}
