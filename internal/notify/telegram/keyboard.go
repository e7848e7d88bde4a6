package tgnotify

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aboly3304/sos-bot/internal/session"
)

// Action is the verb carried in sos:* callback data.
type Action string

const (
	ActionRequest     Action = "req"
	ActionOptIn       Action = "optin"
	ActionViewHelpers Action = "view_helpers"
	ActionResolved    Action = "resolved"
	// ActionBack is reserved; the gateway ignores it.
	ActionBack Action = "back"
)

// Wire tokens for resource kinds. "power" predates the manpower naming and
// stays on the wire for compatibility with existing keyboards.
const (
	wireWater    = "water"
	wireMedicine = "medicine"
	wirePower    = "power"
)

// KindFromWire maps a callback resource token onto a session kind.
func KindFromWire(token string) (session.Kind, error) {
	switch token {
	case wireWater:
		return session.KindWater, nil
	case wireMedicine:
		return session.KindMedicine, nil
	case wirePower:
		return session.KindManpower, nil
	default:
		return "", session.ErrInvalidResourceKind
	}
}

func wireToken(k session.Kind) string {
	if k == session.KindManpower {
		return wirePower
	}
	return string(k)
}

// Callback is one decoded sos:* button press.
type Callback struct {
	Action   Action
	EventID  uint64
	Resource string
}

// ParseCallback decodes sos:* callback data. Data outside the sos namespace
// returns (Callback{}, false, nil) so the caller can skip it silently.
func ParseCallback(data string) (Callback, bool, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[0] != "sos" {
		return Callback{}, false, nil
	}
	action := Action(parts[1])
	switch action {
	case ActionRequest:
		if len(parts) != 4 {
			return Callback{}, true, fmt.Errorf("malformed request callback %q", data)
		}
		id, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return Callback{}, true, fmt.Errorf("bad event id in %q: %w", data, err)
		}
		return Callback{Action: action, EventID: id, Resource: parts[2]}, true, nil
	case ActionOptIn, ActionViewHelpers, ActionResolved, ActionBack:
		if len(parts) != 3 {
			return Callback{}, true, fmt.Errorf("malformed callback %q", data)
		}
		id, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return Callback{}, true, fmt.Errorf("bad event id in %q: %w", data, err)
		}
		return Callback{Action: action, EventID: id}, true, nil
	default:
		return Callback{}, true, fmt.Errorf("unknown sos action %q", data)
	}
}

func callbackRequest(kind session.Kind, eventID uint64) string {
	return fmt.Sprintf("sos:req:%s:%d", wireToken(kind), eventID)
}

func callbackSimple(action Action, eventID uint64) string {
	return fmt.Sprintf("sos:%s:%d", action, eventID)
}

// MainKeyboard is the inline keyboard attached to an SOS announcement.
func MainKeyboard(eventID uint64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💧 Water", callbackRequest(session.KindWater, eventID)),
			tgbotapi.NewInlineKeyboardButtonData("💊 Medicine", callbackRequest(session.KindMedicine, eventID)),
			tgbotapi.NewInlineKeyboardButtonData("💪 Manpower", callbackRequest(session.KindManpower, eventID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I can help", callbackSimple(ActionOptIn, eventID)),
			tgbotapi.NewInlineKeyboardButtonData("👥 Helpers", callbackSimple(ActionViewHelpers, eventID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Danger resolved", callbackSimple(ActionResolved, eventID)),
		),
	)
}
