package sossvc

import (
	"context"

	"github.com/aboly3304/sos-bot/internal/factlog"
	"github.com/aboly3304/sos-bot/internal/notify"
	"github.com/aboly3304/sos-bot/internal/profile"
	"github.com/aboly3304/sos-bot/internal/session"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

// Service is the session engine. All mutations go through the store's
// per-event exclusion; while it is held the transition only reserves fact
// positions in the pipeline, and the blocking work (log appends,
// notifications, info lookup) happens after release.
type Service struct {
	store  *session.Store
	pipe   *factPipeline
	port   notify.Port
	info   InfoLookup
	logger logpkg.Logger
}

// NewWithLogger constructs the engine with an injected logger.
func NewWithLogger(store *session.Store, facts FactAppender, port notify.Port, info InfoLookup, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("sos"))
	}
	return &Service{store: store, pipe: newFactPipeline(facts, logger), port: port, info: info, logger: logger}
}

// Open creates a new ACTIVE session for the given event. The event ID is
// caller-supplied (the chat transport reuses the announcement message's ID);
// collisions fail with ErrDuplicateEvent. Returns a snapshot of the created
// session.
func (s *Service) Open(ctx context.Context, eventID uint64, chatID, requesterID int64) (*session.Session, error) {
	sess := session.NewSession(eventID, chatID, requesterID)
	err := s.store.Create(sess, func() {
		s.pipe.Enqueue(factlog.Opened(eventID, chatID, requesterID))
	})
	if err != nil {
		return nil, err
	}
	s.pipe.Flush(ctx)
	s.logger.Info("sos opened",
		logpkg.Uint64("event_id", eventID),
		logpkg.Int64("chat_id", chatID),
		logpkg.Int64("requester_id", requesterID),
	)
	return sess.Clone(), nil
}

// RequestResource records one resource ask. The kind is validated against
// the closed enumeration before any state is touched; repeats by the same
// participant are each recorded separately.
func (s *Service) RequestResource(ctx context.Context, eventID uint64, participantID int64, kind string) (session.Kind, error) {
	k, err := session.ParseKind(kind)
	if err != nil {
		return "", err
	}

	var chatID int64
	err = s.store.Mutate(eventID, func(sess *session.Session) error {
		if !sess.Active() {
			return session.ErrInactiveSession
		}
		sess.AddRequest(participantID, k)
		chatID = sess.ChatID
		s.pipe.Enqueue(factlog.ResourceRequested(eventID, participantID, string(k)))
		return nil
	})
	if err != nil {
		return "", err
	}

	s.pipe.Flush(ctx)
	s.send(ctx, chatID, notify.Message{
		Kind:          notify.KindResourceAck,
		EventID:       eventID,
		ParticipantID: participantID,
		Resource:      string(k),
	})
	return k, nil
}

// OptIn adds the participant to the helper set. The first occurrence appends
// a fact, announces the helper in the group, and sends the requester's
// supplementary information to the helper in private; repeats change nothing
// and are only acknowledged to the caller.
func (s *Service) OptIn(ctx context.Context, eventID uint64, participantID int64) (OptInResult, error) {
	var (
		first       bool
		helpers     int
		chatID      int64
		requesterID int64
	)
	err := s.store.Mutate(eventID, func(sess *session.Session) error {
		if !sess.Active() {
			return session.ErrInactiveSession
		}
		first = sess.AddHelper(participantID)
		helpers = len(sess.Helpers)
		chatID = sess.ChatID
		requesterID = sess.RequesterID
		if first {
			s.pipe.Enqueue(factlog.HelperOptedIn(eventID, participantID))
		}
		return nil
	})
	if err != nil {
		return OptInResult{}, err
	}

	if first {
		s.pipe.Flush(ctx)
		s.send(ctx, chatID, notify.Message{
			Kind:          notify.KindOptInAnnouncement,
			EventID:       eventID,
			ParticipantID: participantID,
		})
		s.sendSupplementaryInfo(ctx, eventID, requesterID, participantID)
	}
	return OptInResult{First: first, Helpers: helpers}, nil
}

// ViewHelpers returns the helper set ordered by opt-in time. Valid for
// CLOSED sessions too, with an explicit closed hint; unknown events fail
// with ErrNotFound.
func (s *Service) ViewHelpers(ctx context.Context, eventID uint64) (HelpersView, error) {
	sess, err := s.store.Get(eventID)
	if err != nil {
		return HelpersView{}, err
	}
	return HelpersView{Helpers: sess.Helpers, Closed: !sess.Active()}, nil
}

// Resolve closes the session. A session already CLOSED reports
// ErrAlreadyClosed to everyone, requester included; on an ACTIVE session
// only the requester may close (ErrForbidden otherwise). The transition is
// exactly-once, so concurrent resolves yield one success. On success the
// event leaves the active index, a closed fact is appended, the group is
// notified, and the announcement keyboard is removed.
func (s *Service) Resolve(ctx context.Context, eventID uint64, participantID int64) error {
	var chatID int64
	err := s.store.Mutate(eventID, func(sess *session.Session) error {
		if !sess.Active() {
			return session.ErrAlreadyClosed
		}
		if participantID != sess.RequesterID {
			return session.ErrForbidden
		}
		if err := sess.Close(participantID); err != nil {
			return err
		}
		chatID = sess.ChatID
		s.pipe.Enqueue(factlog.Closed(eventID, participantID))
		return nil
	})
	if err != nil {
		return err
	}

	s.store.RemoveActive(eventID)
	s.pipe.Flush(ctx)
	s.send(ctx, chatID, notify.Message{
		Kind:          notify.KindClosure,
		EventID:       eventID,
		ParticipantID: participantID,
	})
	if err := s.port.EditKeyboard(ctx, chatID, int(eventID), notify.None); err != nil {
		s.logger.Warn("keyboard removal failed", logpkg.Uint64("event_id", eventID), logpkg.Err(err))
	}
	s.logger.Info("sos resolved", logpkg.Uint64("event_id", eventID), logpkg.Int64("closed_by", participantID))
	return nil
}

func (s *Service) send(ctx context.Context, chatID int64, msg notify.Message) {
	if err := s.port.SendToChat(ctx, chatID, msg); err != nil {
		s.logger.Warn("chat notification failed",
			logpkg.Str("kind", string(msg.Kind)),
			logpkg.Uint64("event_id", msg.EventID),
			logpkg.Err(err),
		)
	}
}

// sendSupplementaryInfo delivers the requester's supplementary information
// to a helper in private. A failed lookup degrades to "nothing on file".
func (s *Service) sendSupplementaryInfo(ctx context.Context, eventID uint64, requesterID, helperID int64) {
	var info profile.Info
	if s.info != nil {
		var err error
		info, err = s.info.SupplementaryInfo(ctx, requesterID)
		if err != nil {
			s.logger.Warn("supplementary info lookup failed",
				logpkg.Int64("requester_id", requesterID),
				logpkg.Err(err),
			)
			info = nil
		}
	}
	err := s.port.SendToParticipant(ctx, helperID, notify.Message{
		Kind:        notify.KindSupplementaryInfo,
		EventID:     eventID,
		RequesterID: requesterID,
		Info:        info,
	})
	if err != nil {
		s.logger.Warn("private notification failed",
			logpkg.Int64("participant_id", helperID),
			logpkg.Uint64("event_id", eventID),
			logpkg.Err(err),
		)
	}
}
