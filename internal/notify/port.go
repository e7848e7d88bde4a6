// Package notify defines the outbound notification port consumed by the SOS
// engine. Messages are semantic payloads; rendering them into chat text is
// the adapter's concern (see the telegram subpackage), so the engine never
// touches formatting or localization.
package notify

import (
	"context"

	"github.com/aboly3304/sos-bot/internal/profile"
)

// MessageKind discriminates outbound payloads.
type MessageKind string

const (
	// KindResourceAck acknowledges a recorded resource request in the group.
	KindResourceAck MessageKind = "resource_ack"
	// KindOptInAnnouncement announces a new helper in the group.
	KindOptInAnnouncement MessageKind = "optin_announcement"
	// KindSupplementaryInfo carries the requester's supplementary info to a
	// helper in private. Empty Info means nothing on file.
	KindSupplementaryInfo MessageKind = "supplementary_info"
	// KindClosure announces that the session was closed.
	KindClosure MessageKind = "closure"
)

// Message is one outbound notification. Which fields are meaningful depends
// on Kind.
type Message struct {
	Kind          MessageKind
	EventID       uint64
	ParticipantID int64
	RequesterID   int64
	Resource      string
	Info          profile.Info
}

// Port delivers outbound messages. Implementations may fail independently of
// session state; callers log failures and never roll back a transition over
// them.
type Port interface {
	// SendToChat delivers a group-visible message.
	SendToChat(ctx context.Context, chatID int64, msg Message) error
	// SendToParticipant delivers a private message.
	SendToParticipant(ctx context.Context, participantID int64, msg Message) error
	// EditKeyboard replaces the inline keyboard on the event's announcement
	// message. A zero eventID in keyboard removes it.
	EditKeyboard(ctx context.Context, chatID int64, messageID int, keyboard Keyboard) error
}

// Keyboard describes the inline keyboard attached to an event announcement.
// The zero value means "no keyboard".
type Keyboard struct {
	EventID uint64
}

// None is the keyboard value that removes an existing keyboard.
var None = Keyboard{}
