package rehydrate

import (
	"context"
	"errors"
	"testing"

	"github.com/aboly3304/sos-bot/internal/factlog"
	"github.com/aboly3304/sos-bot/internal/session"
)

type staticLog struct {
	facts   []factlog.Fact
	corrupt int
	err     error
}

func (l *staticLog) ReadAll(ctx context.Context) ([]factlog.Fact, int, error) {
	return l.facts, l.corrupt, l.err
}

func replay(t *testing.T, facts ...factlog.Fact) (*session.Store, Stats) {
	t.Helper()
	store := session.NewStore()
	svc := NewWithLogger(&staticLog{facts: facts}, store, nil)
	stats, err := svc.Replay(context.Background())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	return store, stats
}

func TestReplayActiveSessionWithHelper(t *testing.T) {
	store, stats := replay(t,
		factlog.Opened(1, -100, 7),
		factlog.HelperOptedIn(1, 9),
	)

	sess, err := store.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Status != session.StatusActive {
		t.Fatalf("want ACTIVE, got %v", sess.Status)
	}
	if len(sess.Helpers) != 1 || sess.Helpers[0] != 9 {
		t.Fatalf("want helpers={9}, got %v", sess.Helpers)
	}
	if stats.Active != 1 || stats.Closed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReplayClosedSessionDiscarded(t *testing.T) {
	store, stats := replay(t,
		factlog.Opened(1, -100, 7),
		factlog.HelperOptedIn(1, 9),
		factlog.Closed(1, 7),
	)

	if _, err := store.Get(1); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("closed event must be absent, got %v", err)
	}
	if len(store.ListActive()) != 0 {
		t.Fatalf("active index must be empty")
	}
	if stats.Closed != 1 || stats.Active != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReplayOrphanFactsSkipped(t *testing.T) {
	store, stats := replay(t,
		factlog.HelperOptedIn(5, 9), // no prior opened fact
		factlog.Opened(1, -100, 7),
		factlog.ResourceRequested(2, 8, "water"), // unknown event
		factlog.Closed(3, 7),                     // unknown event
	)

	if stats.Skipped != 3 {
		t.Fatalf("want 3 skipped facts, got %d", stats.Skipped)
	}
	if stats.Active != 1 {
		t.Fatalf("replay must still produce the valid session: %+v", stats)
	}
	if _, err := store.Get(1); err != nil {
		t.Fatalf("valid session missing: %v", err)
	}
}

func TestReplayInterleavedEvents(t *testing.T) {
	store, _ := replay(t,
		factlog.Opened(1, -100, 7),
		factlog.Opened(2, -200, 8),
		factlog.HelperOptedIn(2, 9),
		factlog.ResourceRequested(1, 10, "medicine"),
		factlog.Closed(2, 8),
		factlog.HelperOptedIn(1, 11),
	)

	if _, err := store.Get(2); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("event 2 closed, must be absent")
	}
	sess, err := store.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.Requests) != 1 || sess.Requests[0].Kind != session.KindMedicine {
		t.Fatalf("unexpected requests: %v", sess.Requests)
	}
	if len(sess.Helpers) != 1 || sess.Helpers[0] != 11 {
		t.Fatalf("unexpected helpers: %v", sess.Helpers)
	}
}

func TestReplayDuplicateOptInFoldsOnce(t *testing.T) {
	store, _ := replay(t,
		factlog.Opened(1, -100, 7),
		factlog.HelperOptedIn(1, 9),
		factlog.HelperOptedIn(1, 9),
	)
	sess, err := store.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.Helpers) != 1 {
		t.Fatalf("duplicate opt-in facts must fold into one helper: %v", sess.Helpers)
	}
}

func TestReplayUnknownResourceKindSkipped(t *testing.T) {
	store, stats := replay(t,
		factlog.Opened(1, -100, 7),
		factlog.ResourceRequested(1, 8, "food"),
	)
	sess, err := store.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.Requests) != 0 {
		t.Fatalf("unknown kind must not be stored: %v", sess.Requests)
	}
	if stats.Skipped != 1 {
		t.Fatalf("want 1 skipped, got %d", stats.Skipped)
	}
}

func TestReplayPropagatesReadError(t *testing.T) {
	store := session.NewStore()
	svc := NewWithLogger(&staticLog{err: errors.New("scan failed")}, store, nil)
	if _, err := svc.Replay(context.Background()); err == nil {
		t.Fatalf("want error from unreadable log")
	}
}
