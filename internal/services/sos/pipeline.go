package sossvc

import (
	"context"
	"sync"

	"github.com/aboly3304/sos-bot/internal/factlog"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

// factPipeline keeps durable fact order aligned with in-memory commit order.
// Enqueue runs while the per-event exclusion is still held, reserving the
// fact's log position; Flush performs the blocking appends afterwards, head
// to tail, with at most one drainer at a time. Without the reservation, two
// mutations committing in order A then B on the same event could reach the
// log as B then A, and replay would rebuild a different state.
type factPipeline struct {
	facts  FactAppender
	logger logpkg.Logger

	mu    sync.Mutex
	queue []factlog.Fact

	drain sync.Mutex
}

func newFactPipeline(facts FactAppender, logger logpkg.Logger) *factPipeline {
	return &factPipeline{facts: facts, logger: logger}
}

// Enqueue reserves the fact's position. It never touches I/O and is safe to
// call under the store's locks.
func (p *factPipeline) Enqueue(f factlog.Fact) {
	p.mu.Lock()
	p.queue = append(p.queue, f)
	p.mu.Unlock()
}

// Flush appends every queued fact in reservation order. Concurrent flushers
// serialize on the drain lock; whichever holds it writes the whole backlog,
// so a caller may find nothing left to do. Append failures are logged and
// absorbed: the live session stays authoritative for the remainder of the
// process lifetime.
func (p *factPipeline) Flush(ctx context.Context) {
	p.drain.Lock()
	defer p.drain.Unlock()
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		f := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if _, err := p.facts.Append(ctx, f); err != nil {
			p.logger.Error("fact append failed",
				logpkg.Str("fact", string(f.Kind)),
				logpkg.Uint64("event_id", f.EventID),
				logpkg.Err(err),
			)
		}
	}
}
