package factlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
)

// Log provides append and full-scan read-back over the fact keyspace.
type Log struct {
	db *pebblestore.DB

	mu      sync.Mutex
	lastSeq uint64
}

// Open initializes a Log and restores the last sequence from metadata.
func Open(db *pebblestore.DB) (*Log, error) {
	l := &Log{db: db}
	if meta, err := db.Get(metaKey); err == nil && len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Append writes one fact as an atomic batch and returns its sequence number.
func (l *Log) Append(ctx context.Context, f Fact) (uint64, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seq := l.lastSeq + 1
	if err := b.Set(keyEntry(seq), encodeRecord([]byte(f.Kind), payload), nil); err != nil {
		return 0, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(metaKey, meta[:], nil); err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	l.lastSeq = seq
	return seq, nil
}

// ReadAll scans the whole log in sequence order. Records that fail checksum
// or JSON decoding are skipped and counted, never fatal: rehydration prefers
// a best-effort state over aborting startup.
func (l *Log) ReadAll(ctx context.Context) (facts []Fact, corrupt int, err error) {
	low := keyEntry(0)
	hi := keyEntry(^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return nil, 0, err
	}
	defer iter.Close()

	for ok := iter.First(); ok; ok = iter.Next() {
		if ctx.Err() != nil {
			return facts, corrupt, ctx.Err()
		}
		if seqFromKey(iter.Key()) == 0 {
			// Sequences start at 1; a zero means the key is not a well-formed
			// entry key.
			corrupt++
			continue
		}
		kind, payload, ok := decodeRecord(iter.Value())
		if !ok {
			corrupt++
			continue
		}
		var f Fact
		if err := json.Unmarshal(payload, &f); err != nil {
			corrupt++
			continue
		}
		f.Kind = Kind(kind)
		facts = append(facts, f)
	}
	return facts, corrupt, nil
}

// LastSeq returns the sequence of the most recent append.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}
