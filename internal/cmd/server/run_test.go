package serverrun

import (
	"context"
	"testing"
	"time"

	cfgpkg "github.com/aboly3304/sos-bot/internal/config"
)

func TestRunStartsAndStops(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.Fsync = "never"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{DataDir: t.TempDir(), Config: cfg})
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not shut down")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Telegram.Enabled = true
	cfg.Telegram.Token = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := Run(ctx, Options{DataDir: t.TempDir(), Config: cfg}); err == nil {
		t.Fatal("expected startup to fail without a bot token")
	}
}

func TestRunRejectsUnknownFsyncMode(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Fsync = "sometimes"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := Run(ctx, Options{DataDir: t.TempDir(), Config: cfg}); err == nil {
		t.Fatal("expected startup to fail on unknown fsync mode")
	}
}
