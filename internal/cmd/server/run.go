package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	cfgpkg "github.com/aboly3304/sos-bot/internal/config"
	"github.com/aboly3304/sos-bot/internal/notify"
	tgnotify "github.com/aboly3304/sos-bot/internal/notify/telegram"
	"github.com/aboly3304/sos-bot/internal/rehydrate"
	"github.com/aboly3304/sos-bot/internal/retryq"
	"github.com/aboly3304/sos-bot/internal/runtime"
	httpserver "github.com/aboly3304/sos-bot/internal/server/http"
	sossvc "github.com/aboly3304/sos-bot/internal/services/sos"
	"github.com/aboly3304/sos-bot/internal/session"
	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
	tgtransport "github.com/aboly3304/sos-bot/internal/transport/telegram"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

type Options struct {
	DataDir string
	Config  cfgpkg.Config
}

// logOnlyPort stands in for the chat transport when the Telegram gateway is
// disabled. Notifications become log lines; the engine never knows the
// difference.
type logOnlyPort struct {
	logger logpkg.Logger
}

func (p logOnlyPort) SendToChat(_ context.Context, chatID int64, msg notify.Message) error {
	p.logger.Info("notification",
		logpkg.Str("kind", string(msg.Kind)),
		logpkg.Int64("chat_id", chatID),
		logpkg.Uint64("event_id", msg.EventID),
	)
	return nil
}

func (p logOnlyPort) SendToParticipant(_ context.Context, participantID int64, msg notify.Message) error {
	p.logger.Info("private notification",
		logpkg.Str("kind", string(msg.Kind)),
		logpkg.Int64("participant_id", participantID),
		logpkg.Uint64("event_id", msg.EventID),
	)
	return nil
}

func (p logOnlyPort) EditKeyboard(context.Context, int64, int, notify.Keyboard) error { return nil }

// Run starts the SOS service and blocks until ctx is cancelled. History is
// replayed into the in-memory store before any traffic is accepted.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers that
	// don't pass a signal-aware context still shut down cleanly.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.DataDir == "" {
		opts.DataDir = cfg.DataDir
	}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return err
	}
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         fsync,
		FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
		Config:        cfg,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	procLogger.Info("Starting SOS server",
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Bool("telegram", cfg.Telegram.Enabled),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	facts, err := rt.OpenFactLog()
	if err != nil {
		return err
	}

	queue, err := retryq.New(rt.DB(), facts, procLogger.With(logpkg.Component("retryq")))
	if err != nil {
		return err
	}
	queue.WithPolicy(retryq.Policy{
		Base:        time.Duration(cfg.Retry.BaseMs) * time.Millisecond,
		Cap:         time.Duration(cfg.Retry.CapMs) * time.Millisecond,
		Factor:      2.0,
		MaxAttempts: cfg.Retry.MaxAttempts,
	})

	var port notify.Port = logOnlyPort{logger: procLogger.With(logpkg.Component("notify"))}
	var bot *tgbotapi.BotAPI
	if cfg.Telegram.Enabled {
		bot, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		port = tgnotify.New(bot, procLogger.With(logpkg.Component("tgnotify")))
	}

	store := session.NewStore()
	engine := sossvc.NewWithLogger(store, queue, port, rt.Profiles(), procLogger.With(logpkg.Component("sos")))

	// Replay before serving: the API must never see a half-rebuilt store.
	rehydrator := rehydrate.NewWithLogger(facts, store, procLogger.With(logpkg.Component("rehydrate")))
	if _, err := rehydrator.Replay(sctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(sctx)
	}()

	hsrv := httpserver.New(rt, engine, store, procLogger.With(logpkg.Component("http")))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	if cfg.Telegram.Enabled {
		gw := tgtransport.New(bot, engine, rt.Profiles(), procLogger.With(logpkg.Component("tgtransport")), cfg.Telegram.PollTimeoutSec)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gw.Run(sctx); err != nil && sctx.Err() == nil {
				procLogger.Error("telegram gateway error", logpkg.Err(err))
			}
		}()
	}

	<-sctx.Done()
	// Shut servers down before closing the runtime/DB to avoid races.
	hsrv.Close()
	wg.Wait()
	return nil
}
