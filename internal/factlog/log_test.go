package factlog

import (
	"context"
	"testing"

	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	l, err := Open(db)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func TestAppendReadAllRoundTrip(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	in := []Fact{
		Opened(1, -100, 7),
		ResourceRequested(1, 8, "water"),
		HelperOptedIn(1, 9),
		Closed(1, 7),
	}
	var prev uint64
	for _, f := range in {
		seq, err := l.Append(ctx, f)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if seq <= prev {
			t.Fatalf("expected increasing seqs: prev=%d got=%d", prev, seq)
		}
		prev = seq
	}

	out, corrupt, err := l.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if corrupt != 0 {
		t.Fatalf("unexpected corrupt count %d", corrupt)
	}
	if len(out) != len(in) {
		t.Fatalf("want %d facts, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].Kind != in[i].Kind || out[i].EventID != in[i].EventID {
			t.Fatalf("fact %d mismatch: want %+v got %+v", i, in[i], out[i])
		}
	}
	if out[0].ChatID != -100 || out[0].RequesterID != 7 {
		t.Fatalf("opened fields lost: %+v", out[0])
	}
	if out[1].Resource != "water" || out[1].ParticipantID != 8 {
		t.Fatalf("resource fields lost: %+v", out[1])
	}
	if out[3].ClosedBy != 7 {
		t.Fatalf("closed fields lost: %+v", out[3])
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	l, err := Open(db)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	seq1, err := l.Append(ctx, Opened(1, 10, 100))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := Open(db2)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	seq2, err := l2.Append(ctx, HelperOptedIn(1, 200))
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if seq2 <= seq1 {
		t.Fatalf("expected seq continuation: first=%d second=%d", seq1, seq2)
	}

	facts, _, err := l2.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("want 2 facts after reopen, got %d", len(facts))
	}
}

func TestReadAllSkipsCorruptRecords(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	if _, err := l.Append(ctx, Opened(1, 10, 100)); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Write garbage directly into the entry keyspace between valid records.
	if err := l.db.Set(keyEntry(l.LastSeq()+1), []byte("not a record")); err != nil {
		t.Fatalf("inject: %v", err)
	}
	l.mu.Lock()
	l.lastSeq++
	l.mu.Unlock()
	if _, err := l.Append(ctx, Closed(1, 100)); err != nil {
		t.Fatalf("append: %v", err)
	}
	// A key in the entry keyspace that is too short to carry a sequence.
	if err := l.db.Set(append(append([]byte(nil), entryPrefix...), "short"...), []byte("x")); err != nil {
		t.Fatalf("inject: %v", err)
	}

	facts, corrupt, err := l.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if corrupt != 2 {
		t.Fatalf("want 2 corrupt records, got %d", corrupt)
	}
	if len(facts) != 2 {
		t.Fatalf("want 2 decodable facts, got %d", len(facts))
	}
	if facts[0].Kind != KindOpened || facts[1].Kind != KindClosed {
		t.Fatalf("unexpected kinds: %v %v", facts[0].Kind, facts[1].Kind)
	}
}

func TestRecordCodecRejectsBitFlip(t *testing.T) {
	enc := encodeRecord([]byte("opened"), []byte(`{"eventId":1}`))
	if _, _, ok := decodeRecord(enc); !ok {
		t.Fatalf("valid record must decode")
	}
	enc[len(enc)/2] ^= 0x01
	if _, _, ok := decodeRecord(enc); ok {
		t.Fatalf("corrupted record must fail checksum")
	}
}
