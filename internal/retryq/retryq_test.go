package retryq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aboly3304/sos-bot/internal/factlog"
	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
)

type flakyAppender struct {
	mu       sync.Mutex
	failures int
	appended []factlog.Fact
}

func (f *flakyAppender) Append(_ context.Context, fact factlog.Fact) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("store unavailable")
	}
	f.appended = append(f.appended, fact)
	return uint64(len(f.appended)), nil
}

func (f *flakyAppender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

func openTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func fastPolicy() Policy {
	return Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Factor: 2.0, MaxAttempts: 8}
}

func TestAppendPassThrough(t *testing.T) {
	db := openTestDB(t)
	target := &flakyAppender{}
	q, err := New(db, target, nil)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	seq, err := q.Append(context.Background(), factlog.Opened(7, 100, 200))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if seq != 1 {
		t.Fatalf("seq = %d, want 1", seq)
	}
	if q.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", q.Pending())
	}
}

func TestFailedAppendIsParkedAndError(t *testing.T) {
	db := openTestDB(t)
	target := &flakyAppender{failures: 1}
	q, err := New(db, target, nil)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	if _, err := q.Append(context.Background(), factlog.Closed(7, 200)); err == nil {
		t.Fatal("expected append error to propagate")
	}
	if q.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", q.Pending())
	}
}

func TestWorkerFlushesParkedFacts(t *testing.T) {
	db := openTestDB(t)
	target := &flakyAppender{failures: 3}
	q, err := New(db, target, nil)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	q.WithPolicy(fastPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = q.Append(ctx, factlog.HelperOptedIn(7, 300))
	if q.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", q.Pending())
	}

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for target.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if target.count() != 1 {
		t.Fatalf("flushed = %d, want 1", target.count())
	}
	if q.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", q.Pending())
	}

	got := target.appended[0]
	if got.Kind != factlog.KindHelperOptedIn || got.EventID != 7 || got.ParticipantID != 300 {
		t.Fatalf("flushed fact mismatch: %+v", got)
	}
}

func TestWorkerDropsAfterRetryBudget(t *testing.T) {
	db := openTestDB(t)
	target := &flakyAppender{failures: 100}
	q, err := New(db, target, nil)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	p := fastPolicy()
	p.MaxAttempts = 2
	q.WithPolicy(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _ = q.Append(ctx, factlog.ResourceRequested(7, 200, "water"))

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for q.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if q.Pending() != 0 {
		t.Fatalf("pending = %d, want 0 after budget exhausted", q.Pending())
	}
	if target.count() != 0 {
		t.Fatalf("flushed = %d, want 0", target.count())
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	target := &flakyAppender{failures: 10}
	q, err := New(db, target, nil)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	_, _ = q.Append(context.Background(), factlog.Opened(9, 100, 200))
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db2.Close()

	healthy := &flakyAppender{}
	q2, err := New(db2, healthy, nil)
	if err != nil {
		t.Fatalf("reopen queue: %v", err)
	}
	q2.WithPolicy(fastPolicy())
	if q2.Pending() != 1 {
		t.Fatalf("pending after reopen = %d, want 1", q2.Pending())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		q2.Run(ctx)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for healthy.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if healthy.count() != 1 {
		t.Fatalf("flushed = %d, want 1", healthy.count())
	}
	if q2.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", q2.Pending())
	}
}
