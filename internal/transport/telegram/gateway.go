package tgtransport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	tgnotify "github.com/aboly3304/sos-bot/internal/notify/telegram"
	"github.com/aboly3304/sos-bot/internal/profile"
	sossvc "github.com/aboly3304/sos-bot/internal/services/sos"
	"github.com/aboly3304/sos-bot/internal/session"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

// Engine is the slice of the session engine the gateway drives.
type Engine interface {
	Open(ctx context.Context, eventID uint64, chatID, requesterID int64) (*session.Session, error)
	RequestResource(ctx context.Context, eventID uint64, participantID int64, kind string) (session.Kind, error)
	OptIn(ctx context.Context, eventID uint64, participantID int64) (sossvc.OptInResult, error)
	ViewHelpers(ctx context.Context, eventID uint64) (sossvc.HelpersView, error)
	Resolve(ctx context.Context, eventID uint64, participantID int64) error
}

// BotAPI is the slice of the Telegram client the gateway needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Registrar persists /start registrations.
type Registrar interface {
	PutRegistration(ctx context.Context, r profile.Registration) error
}

// Gateway long-polls Telegram and dispatches updates to the engine.
type Gateway struct {
	bot         BotAPI
	engine      Engine
	registrar   Registrar
	logger      logpkg.Logger
	pollTimeout int
}

func New(bot BotAPI, engine Engine, registrar Registrar, logger logpkg.Logger, pollTimeoutSec int) *Gateway {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("tgtransport"))
	}
	if pollTimeoutSec <= 0 {
		pollTimeoutSec = 30
	}
	return &Gateway{bot: bot, engine: engine, registrar: registrar, logger: logger, pollTimeout: pollTimeoutSec}
}

// Run consumes updates until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = g.pollTimeout
	updates := g.bot.GetUpdatesChan(cfg)
	defer g.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			g.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches one update. Exported for tests.
func (g *Gateway) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil && upd.Message.IsCommand():
		g.handleCommand(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		g.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (g *Gateway) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		g.handleStart(ctx, msg)
	case "sos":
		g.handleSOS(ctx, msg)
	}
}

// handleStart performs silent registration: one row per /start, no
// multi-step conversation.
func (g *Gateway) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if g.registrar != nil {
		err := g.registrar.PutRegistration(ctx, profile.Registration{
			UserID:    msg.From.ID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			ChatID:    msg.Chat.ID,
			AtMs:      time.Now().UnixMilli(),
		})
		if err != nil {
			g.logger.Error("registration failed", logpkg.Int64("user_id", msg.From.ID), logpkg.Err(err))
		}
	}
	g.reply(msg.Chat.ID, "Hi 👋\nYou are registered. Send /sos in your group whenever you need help.")
}

// handleSOS opens a session in a group chat. The announcement message's id
// becomes the event id, so the keyboard is sent with a placeholder first and
// swapped once the real id is known.
func (g *Gateway) handleSOS(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		g.reply(msg.Chat.ID, "/sos only works in a group or supergroup.")
		return
	}

	text := fmt.Sprintf(
		"🚨 *Emergency assistance requested*\n\n"+
			"Requester: [%s](tg://user?id=%d)\n"+
			"Tap \"I can help\" if you can assist, and pick the kind of help needed (water / medicine / manpower).",
		displayName(msg.From), msg.From.ID,
	)
	announce := tgbotapi.NewMessage(msg.Chat.ID, text)
	announce.ParseMode = tgbotapi.ModeMarkdown
	announce.ReplyMarkup = tgnotify.MainKeyboard(0)
	sent, err := g.bot.Send(announce)
	if err != nil {
		g.logger.Error("sos announcement failed", logpkg.Int64("chat_id", msg.Chat.ID), logpkg.Err(err))
		return
	}

	eventID := uint64(sent.MessageID)
	markup := tgnotify.MainKeyboard(eventID)
	edit := tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, sent.MessageID, markup)
	if _, err := g.bot.Request(edit); err != nil {
		g.logger.Warn("keyboard update failed", logpkg.Uint64("event_id", eventID), logpkg.Err(err))
	}

	if _, err := g.engine.Open(ctx, eventID, msg.Chat.ID, msg.From.ID); err != nil {
		g.logger.Error("sos open failed", logpkg.Uint64("event_id", eventID), logpkg.Err(err))
	}
}

func (g *Gateway) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Data == "" {
		return
	}
	cb, ours, err := tgnotify.ParseCallback(q.Data)
	if !ours {
		return
	}
	g.answer(q.ID, "")
	if err != nil {
		g.logger.Warn("bad callback data", logpkg.Str("data", q.Data), logpkg.Err(err))
		return
	}

	switch cb.Action {
	case tgnotify.ActionRequest:
		g.handleRequest(ctx, q, cb)
	case tgnotify.ActionOptIn:
		g.handleOptIn(ctx, q, cb)
	case tgnotify.ActionViewHelpers:
		g.handleViewHelpers(ctx, q, cb)
	case tgnotify.ActionResolved:
		g.handleResolved(ctx, q, cb)
	case tgnotify.ActionBack:
		// Reserved.
	}
}

func (g *Gateway) handleRequest(ctx context.Context, q *tgbotapi.CallbackQuery, cb tgnotify.Callback) {
	kind, err := tgnotify.KindFromWire(cb.Resource)
	if err != nil {
		g.logger.Warn("unknown resource token", logpkg.Str("data", q.Data))
		return
	}
	if _, err := g.engine.RequestResource(ctx, cb.EventID, q.From.ID, string(kind)); err != nil {
		g.replyInactive(q, cb.EventID, err)
	}
}

func (g *Gateway) handleOptIn(ctx context.Context, q *tgbotapi.CallbackQuery, cb tgnotify.Callback) {
	res, err := g.engine.OptIn(ctx, cb.EventID, q.From.ID)
	if err != nil {
		g.replyInactive(q, cb.EventID, err)
		return
	}
	if res.First {
		g.answer(q.ID, "Registered, please wait for coordination.")
	} else {
		g.answer(q.ID, "You are already on the helper list.")
	}
}

func (g *Gateway) handleViewHelpers(ctx context.Context, q *tgbotapi.CallbackQuery, cb tgnotify.Callback) {
	view, err := g.engine.ViewHelpers(ctx, cb.EventID)
	if err != nil {
		g.alert(q.ID, "This SOS was not found.")
		return
	}
	if len(view.Helpers) == 0 {
		g.alert(q.ID, "No one has offered to help yet.")
		return
	}
	lines := make([]string, 0, len(view.Helpers)+1)
	lines = append(lines, "👥 Helpers so far:")
	for _, h := range view.Helpers {
		lines = append(lines, fmt.Sprintf("• [helper](tg://user?id=%d)", h))
	}
	if view.Closed {
		lines = append(lines, "", "This SOS is already closed.")
	}
	if q.Message != nil {
		g.reply(q.Message.Chat.ID, strings.Join(lines, "\n"))
	}
}

func (g *Gateway) handleResolved(ctx context.Context, q *tgbotapi.CallbackQuery, cb tgnotify.Callback) {
	err := g.engine.Resolve(ctx, cb.EventID, q.From.ID)
	switch {
	case err == nil:
		// Closure notice and keyboard removal come from the engine.
	case errors.Is(err, session.ErrForbidden):
		g.alert(q.ID, "Only the requester can mark the danger as resolved.")
	case errors.Is(err, session.ErrAlreadyClosed), errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInactiveSession):
		g.alert(q.ID, "This SOS is already closed.")
	default:
		g.logger.Error("resolve failed", logpkg.Uint64("event_id", cb.EventID), logpkg.Err(err))
	}
}

// replyInactive handles the shared "session is gone" outcome for mutating
// buttons: remove the stale keyboard and tell the chat.
func (g *Gateway) replyInactive(q *tgbotapi.CallbackQuery, eventID uint64, err error) {
	if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrInactiveSession) && !errors.Is(err, session.ErrAlreadyClosed) {
		g.logger.Error("action failed", logpkg.Uint64("event_id", eventID), logpkg.Err(err))
		return
	}
	if q.Message == nil {
		return
	}
	strip := tgbotapi.EditMessageReplyMarkupConfig{
		BaseEdit: tgbotapi.BaseEdit{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID},
	}
	if _, err := g.bot.Request(strip); err != nil {
		g.logger.Warn("keyboard removal failed", logpkg.Uint64("event_id", eventID), logpkg.Err(err))
	}
	g.reply(q.Message.Chat.ID, "This SOS is no longer active.")
}

func (g *Gateway) reply(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	if _, err := g.bot.Send(m); err != nil {
		g.logger.Warn("reply failed", logpkg.Int64("chat_id", chatID), logpkg.Err(err))
	}
}

func (g *Gateway) answer(callbackID, text string) {
	if _, err := g.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		g.logger.Warn("callback answer failed", logpkg.Err(err))
	}
}

func (g *Gateway) alert(callbackID, text string) {
	if _, err := g.bot.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		g.logger.Warn("callback alert failed", logpkg.Err(err))
	}
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return name
}
