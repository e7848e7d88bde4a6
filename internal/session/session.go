// Package session holds the SOS session model and the in-memory store that
// is the single source of truth for open events during normal operation.
package session

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a session. The only transition is
// StatusActive -> StatusClosed; there is no reopening.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Kind is a requestable resource. The set is closed; anything else is
// rejected at the boundary.
type Kind string

const (
	KindWater    Kind = "water"
	KindMedicine Kind = "medicine"
	KindManpower Kind = "manpower"
)

// ParseKind validates a resource kind against the closed set.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindWater, KindMedicine, KindManpower:
		return Kind(s), nil
	default:
		return "", ErrInvalidResourceKind
	}
}

// ResourceRequest is one recorded ask for a resource. Requests are
// append-only; the same participant may ask for the same kind repeatedly.
type ResourceRequest struct {
	ParticipantID int64
	Kind          Kind
	At            time.Time
}

// Session is one SOS event. EventID, ChatID and RequesterID are immutable
// after creation; everything else mutates only through Store.Mutate.
type Session struct {
	EventID     uint64
	ChatID      int64
	RequesterID int64
	Status      Status
	// Helpers is ordered by opt-in time and never contains duplicates.
	Helpers  []int64
	Requests []ResourceRequest
	ClosedBy int64
	OpenedAt time.Time
}

// NewSession returns a fresh ACTIVE session.
func NewSession(eventID uint64, chatID, requesterID int64) *Session {
	return &Session{
		EventID:     eventID,
		ChatID:      chatID,
		RequesterID: requesterID,
		Status:      StatusActive,
		OpenedAt:    time.Now(),
	}
}

// Active reports whether the session still accepts mutating actions.
func (s *Session) Active() bool { return s.Status == StatusActive }

// AddHelper records an opt-in. It returns false when the participant already
// opted in; the helper set never gains duplicates.
func (s *Session) AddHelper(participantID int64) bool {
	for _, h := range s.Helpers {
		if h == participantID {
			return false
		}
	}
	s.Helpers = append(s.Helpers, participantID)
	return true
}

// AddRequest appends a resource request stamped with the current time.
func (s *Session) AddRequest(participantID int64, kind Kind) {
	s.Requests = append(s.Requests, ResourceRequest{
		ParticipantID: participantID,
		Kind:          kind,
		At:            time.Now(),
	})
}

// Close transitions the session to CLOSED. It fails with ErrAlreadyClosed on
// a second call and never checks authorization; that is the engine's job.
func (s *Session) Close(closedBy int64) error {
	if s.Status == StatusClosed {
		return ErrAlreadyClosed
	}
	s.Status = StatusClosed
	s.ClosedBy = closedBy
	return nil
}

// Clone returns a deep copy safe to hand out without holding the store lock.
func (s *Session) Clone() *Session {
	c := *s
	c.Helpers = append([]int64(nil), s.Helpers...)
	c.Requests = append([]ResourceRequest(nil), s.Requests...)
	return &c
}

// Error taxonomy for session actions. All of these are recovered at the
// action boundary and turned into user-facing outcomes; none are fatal.
var (
	ErrNotFound            = errors.New("session: event not found")
	ErrDuplicateEvent      = errors.New("session: event id already exists")
	ErrInvalidResourceKind = errors.New("session: unknown resource kind")
	ErrForbidden           = errors.New("session: only the requester may close")
	ErrAlreadyClosed       = errors.New("session: already closed")
	ErrInactiveSession     = errors.New("session: no longer active")
)
