package tgnotify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aboly3304/sos-bot/internal/notify"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

// Sender is the slice of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier implements notify.Port over the Telegram Bot API.
type Notifier struct {
	bot    Sender
	logger logpkg.Logger
}

func New(bot Sender, logger logpkg.Logger) *Notifier {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("tgnotify"))
	}
	return &Notifier{bot: bot, logger: logger}
}

var _ notify.Port = (*Notifier)(nil)

// SendToChat renders the message for the group conversation.
func (n *Notifier) SendToChat(ctx context.Context, chatID int64, msg notify.Message) error {
	return n.send(chatID, renderGroup(msg))
}

// SendToParticipant renders the message for a private conversation. The
// participant's private chat id equals their user id.
func (n *Notifier) SendToParticipant(ctx context.Context, participantID int64, msg notify.Message) error {
	return n.send(participantID, renderPrivate(msg))
}

// EditKeyboard swaps the inline keyboard under the announcement message.
// notify.None removes it.
func (n *Notifier) EditKeyboard(ctx context.Context, chatID int64, messageID int, kb notify.Keyboard) error {
	edit := tgbotapi.EditMessageReplyMarkupConfig{
		BaseEdit: tgbotapi.BaseEdit{ChatID: chatID, MessageID: messageID},
	}
	if kb != notify.None {
		markup := MainKeyboard(kb.EventID)
		edit.ReplyMarkup = &markup
	}
	_, err := n.bot.Request(edit)
	return err
}

func (n *Notifier) send(chatID int64, text string) error {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	_, err := n.bot.Send(m)
	return err
}

func mention(userID int64) string {
	return fmt.Sprintf("[helper](tg://user?id=%d)", userID)
}

func resourceLabel(resource string) string {
	switch resource {
	case "water":
		return "water"
	case "medicine":
		return "medicine"
	case "manpower":
		return "manpower"
	default:
		return resource
	}
}

func renderGroup(msg notify.Message) string {
	switch msg.Kind {
	case notify.KindResourceAck:
		return fmt.Sprintf("✅ Request for *%s* recorded.", resourceLabel(msg.Resource))
	case notify.KindOptInAnnouncement:
		return fmt.Sprintf("🙋 %s offered to help.", mention(msg.ParticipantID))
	case notify.KindClosure:
		return "🚫 The requester marked this SOS as resolved. Thanks to everyone who helped."
	default:
		return ""
	}
}

func renderPrivate(msg notify.Message) string {
	if msg.Kind != notify.KindSupplementaryInfo {
		return renderGroup(msg)
	}
	if len(msg.Info) == 0 {
		return "ℹ️ No medical information is on file for the requester. Please coordinate with them directly before acting."
	}
	lines := []string{"🩺 Medical information on file for the requester:", ""}
	for _, f := range msg.Info {
		lines = append(lines, fmt.Sprintf("• %s: %s", f.Label, f.Value))
	}
	return strings.Join(lines, "\n")
}
