// Package rehydrate reconstructs the in-memory session store from the
// durable fact log at process start, before any inbound action is accepted.
package rehydrate

import (
	"context"
	"time"

	"github.com/aboly3304/sos-bot/internal/factlog"
	"github.com/aboly3304/sos-bot/internal/session"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

// FactReader is the full-scan read-back primitive of the durable log.
type FactReader interface {
	ReadAll(ctx context.Context) (facts []factlog.Fact, corrupt int, err error)
}

// Service replays the fact history into a session store.
type Service struct {
	facts  FactReader
	store  *session.Store
	logger logpkg.Logger
}

// NewWithLogger constructs the service with an injected logger.
func NewWithLogger(facts FactReader, store *session.Store, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("rehydrate"))
	}
	return &Service{facts: facts, store: store, logger: logger}
}

// Stats summarizes one replay run.
type Stats struct {
	Facts    int
	Skipped  int
	Corrupt  int
	Active   int
	Closed   int
	Duration time.Duration
}

// Replay folds the full fact history into the store. Facts referencing an
// event with no prior opened fact are skipped with a warning, never fatal:
// rehydration completes with a best-effort state rather than aborting
// startup. Sessions whose terminal state is CLOSED are discarded.
func (s *Service) Replay(ctx context.Context) (Stats, error) {
	start := time.Now()
	facts, corrupt, err := s.facts.ReadAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	// Replay is order-preserving per event; interleaving across events is
	// whatever the log recorded.
	sessions := make(map[uint64]*session.Session)
	closed := make(map[uint64]bool)
	stats := Stats{Facts: len(facts), Corrupt: corrupt}

	for _, f := range facts {
		switch f.Kind {
		case factlog.KindOpened:
			if _, ok := sessions[f.EventID]; ok || closed[f.EventID] {
				stats.Skipped++
				s.logger.Warn("duplicate opened fact skipped", logpkg.Uint64("event_id", f.EventID))
				continue
			}
			sess := session.NewSession(f.EventID, f.ChatID, f.RequesterID)
			sess.OpenedAt = time.UnixMilli(f.AtMs)
			sessions[f.EventID] = sess
		case factlog.KindResourceRequested:
			sess, ok := sessions[f.EventID]
			if !ok {
				stats.Skipped++
				s.logger.Warn("orphan fact skipped",
					logpkg.Str("fact", string(f.Kind)),
					logpkg.Uint64("event_id", f.EventID),
				)
				continue
			}
			kind, err := session.ParseKind(f.Resource)
			if err != nil {
				stats.Skipped++
				s.logger.Warn("fact with unknown resource kind skipped",
					logpkg.Uint64("event_id", f.EventID),
					logpkg.Str("resource", f.Resource),
				)
				continue
			}
			sess.AddRequest(f.ParticipantID, kind)
		case factlog.KindHelperOptedIn:
			sess, ok := sessions[f.EventID]
			if !ok {
				stats.Skipped++
				s.logger.Warn("orphan fact skipped",
					logpkg.Str("fact", string(f.Kind)),
					logpkg.Uint64("event_id", f.EventID),
				)
				continue
			}
			sess.AddHelper(f.ParticipantID)
		case factlog.KindClosed:
			sess, ok := sessions[f.EventID]
			if !ok {
				stats.Skipped++
				s.logger.Warn("orphan fact skipped",
					logpkg.Str("fact", string(f.Kind)),
					logpkg.Uint64("event_id", f.EventID),
				)
				continue
			}
			_ = sess.Close(f.ClosedBy)
			delete(sessions, f.EventID)
			closed[f.EventID] = true
			stats.Closed++
		default:
			stats.Skipped++
			s.logger.Warn("unknown fact kind skipped", logpkg.Str("fact", string(f.Kind)))
		}
	}

	for _, sess := range sessions {
		if err := s.store.Create(sess, nil); err != nil {
			stats.Skipped++
			s.logger.Warn("replayed session not inserted",
				logpkg.Uint64("event_id", sess.EventID),
				logpkg.Err(err),
			)
			continue
		}
		stats.Active++
	}

	stats.Duration = time.Since(start)
	s.logger.Info("rehydration complete",
		logpkg.Int("facts", stats.Facts),
		logpkg.Int("active", stats.Active),
		logpkg.Int("closed", stats.Closed),
		logpkg.Int("skipped", stats.Skipped),
		logpkg.Int("corrupt", stats.Corrupt),
		logpkg.Duration("took", stats.Duration),
	)
	return stats, nil
}
