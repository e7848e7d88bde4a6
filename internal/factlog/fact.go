package factlog

import "time"

// Kind discriminates fact payloads.
type Kind string

const (
	KindOpened            Kind = "opened"
	KindResourceRequested Kind = "resource_requested"
	KindHelperOptedIn     Kind = "helper_opted_in"
	KindClosed            Kind = "closed"
)

// Fact is one immutable record in the durable log. Which fields are
// meaningful depends on Kind; the zero value of the rest is ignored.
type Fact struct {
	Kind          Kind   `json:"-"`
	EventID       uint64 `json:"eventId"`
	ChatID        int64  `json:"chatId,omitempty"`
	RequesterID   int64  `json:"requesterId,omitempty"`
	ParticipantID int64  `json:"participantId,omitempty"`
	Resource      string `json:"resource,omitempty"`
	ClosedBy      int64  `json:"closedBy,omitempty"`
	AtMs          int64  `json:"atMs"`
}

func stamp(f Fact) Fact {
	if f.AtMs == 0 {
		f.AtMs = time.Now().UnixMilli()
	}
	return f
}

// Opened records the creation of a session.
func Opened(eventID uint64, chatID, requesterID int64) Fact {
	return stamp(Fact{Kind: KindOpened, EventID: eventID, ChatID: chatID, RequesterID: requesterID})
}

// ResourceRequested records one resource ask.
func ResourceRequested(eventID uint64, participantID int64, resource string) Fact {
	return stamp(Fact{Kind: KindResourceRequested, EventID: eventID, ParticipantID: participantID, Resource: resource})
}

// HelperOptedIn records a participant's first opt-in.
func HelperOptedIn(eventID uint64, participantID int64) Fact {
	return stamp(Fact{Kind: KindHelperOptedIn, EventID: eventID, ParticipantID: participantID})
}

// Closed records the terminal transition.
func Closed(eventID uint64, closedBy int64) Fact {
	return stamp(Fact{Kind: KindClosed, EventID: eventID, ClosedBy: closedBy})
}
