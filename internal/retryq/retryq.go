// Package retryq adds a best-effort retry pipeline in front of the fact
// log. A failed append is parked in Pebble and retried in the background
// with capped exponential backoff; session correctness never depends on it,
// it only narrows the audit gap left by a transient storage failure.
package retryq

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/aboly3304/sos-bot/internal/factlog"
	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

// Appender is the downstream sink, normally the fact log.
type Appender interface {
	Append(ctx context.Context, f factlog.Fact) (uint64, error)
}

// Policy shapes the retry backoff.
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	Factor      float64
	MaxAttempts uint32
}

// DefaultPolicy mirrors the service-wide backoff defaults.
func DefaultPolicy() Policy {
	return Policy{Base: 200 * time.Millisecond, Cap: 30 * time.Second, Factor: 2.0, MaxAttempts: 8}
}

// Keyspace layout:
// - sos/retry/m
// - sos/retry/e/{seq_be8}
var (
	retryMetaKey    = []byte("sos/retry/m")
	retryEntryPfx   = []byte("sos/retry/e/")
	defaultPollIntv = 500 * time.Millisecond
)

func keyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(retryEntryPfx)+8)
	k = append(k, retryEntryPfx...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(k, b[:]...)
}

type pending struct {
	Kind     factlog.Kind `json:"kind"`
	Fact     factlog.Fact `json:"fact"`
	Attempts uint32       `json:"attempts"`
}

// Queue decorates an Appender with durable retries. Append forwards to the
// target; on failure the fact is parked and the original error returned, so
// callers still observe and log it.
type Queue struct {
	db     *pebblestore.DB
	target Appender
	logger logpkg.Logger
	policy Policy

	mu      sync.Mutex
	lastSeq uint64

	wake chan struct{}
}

// New opens the queue and restores its sequence from metadata.
func New(db *pebblestore.DB, target Appender, logger logpkg.Logger) (*Queue, error) {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("retryq"))
	}
	q := &Queue{db: db, target: target, logger: logger, policy: DefaultPolicy(), wake: make(chan struct{}, 1)}
	if meta, err := db.Get(retryMetaKey); err == nil && len(meta) >= 8 {
		q.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return q, nil
}

// WithPolicy overrides the retry policy.
func (q *Queue) WithPolicy(p Policy) *Queue {
	q.policy = p
	return q
}

// Append implements Appender. A failed downstream append parks the fact for
// the background worker and propagates the error.
func (q *Queue) Append(ctx context.Context, f factlog.Fact) (uint64, error) {
	seq, err := q.target.Append(ctx, f)
	if err == nil {
		return seq, nil
	}
	if qerr := q.enqueue(ctx, f, 1); qerr != nil {
		q.logger.Error("retry enqueue failed", logpkg.Uint64("event_id", f.EventID), logpkg.Err(qerr))
	}
	return 0, err
}

func (q *Queue) enqueue(ctx context.Context, f factlog.Fact, attempts uint32) error {
	val, err := json.Marshal(pending{Kind: f.Kind, Fact: f, Attempts: attempts})
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	b := q.db.NewBatch()
	defer b.Close()
	seq := q.lastSeq + 1
	if err := b.Set(keyEntry(seq), val, nil); err != nil {
		return err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(retryMetaKey, meta[:], nil); err != nil {
		return err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	q.lastSeq = seq

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run drains the queue until ctx is cancelled. Intended as a background
// goroutine started by the composition root.
func (q *Queue) Run(ctx context.Context) {
	for {
		drained := q.drainOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if drained {
			// Nothing pending; sleep until the next enqueue or poll tick.
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			case <-time.After(defaultPollIntv):
			}
		}
	}
}

// drainOnce walks the pending entries once. Returns true when the queue is
// empty afterwards.
func (q *Queue) drainOnce(ctx context.Context) bool {
	lo := keyEntry(0)
	hi := keyEntry(^uint64(0))
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: append(hi, 0x00)})
	if err != nil {
		return true
	}
	defer it.Close()

	empty := true
	for ok := it.First(); ok; ok = it.Next() {
		if ctx.Err() != nil {
			return false
		}
		key := append([]byte(nil), it.Key()...)
		var p pending
		if err := json.Unmarshal(it.Value(), &p); err != nil {
			// Undecodable entry blocks nothing; drop it.
			_ = q.db.Delete(key)
			continue
		}
		p.Fact.Kind = p.Kind

		if _, err := q.target.Append(ctx, p.Fact); err == nil {
			_ = q.db.Delete(key)
			q.logger.Info("parked fact flushed",
				logpkg.Str("fact", string(p.Kind)),
				logpkg.Uint64("event_id", p.Fact.EventID),
			)
			continue
		} else if p.Attempts >= q.policy.MaxAttempts {
			_ = q.db.Delete(key)
			q.logger.Error("parked fact dropped after retry budget",
				logpkg.Str("fact", string(p.Kind)),
				logpkg.Uint64("event_id", p.Fact.EventID),
				logpkg.Int("attempts", int(p.Attempts)),
				logpkg.Err(err),
			)
			continue
		}

		p.Attempts++
		if val, err := json.Marshal(p); err == nil {
			_ = q.db.Set(key, val)
		}
		empty = false

		select {
		case <-ctx.Done():
			return false
		case <-time.After(q.backoff(p.Attempts)):
		}
	}
	return empty
}

// backoff computes a jittered exponential delay for the given attempt.
func (q *Queue) backoff(attempts uint32) time.Duration {
	base := q.policy.Base
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	factor := q.policy.Factor
	if factor <= 0 {
		factor = 2.0
	}
	d := float64(base)
	for i := uint32(1); i < attempts; i++ {
		d *= factor
	}
	delay := time.Duration(d)
	if q.policy.Cap > 0 && delay > q.policy.Cap {
		delay = q.policy.Cap
	}
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)) + 1)
}

// Pending reports the number of parked facts. Diagnostics only.
func (q *Queue) Pending() int {
	lo := keyEntry(0)
	hi := keyEntry(^uint64(0))
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0
	}
	defer it.Close()
	n := 0
	for ok := it.First(); ok; ok = it.Next() {
		n++
	}
	return n
}
