// Package id generates compact, time-ordered event identifiers.
//
// Event IDs normally come from the chat transport (the announcement
// message's ID). Actions arriving through the HTTP gateway have no such
// message, so the gateway assigns one from a Generator instead. IDs are
// uint64 values of the form [42 bits ms_timestamp | 22 bits sequence],
// strictly increasing per process.
package id

import (
	"sync"
	"time"
)

const seqBits = 22

// Generator produces monotonically increasing event IDs per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch. Overridable
// in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new event ID. If the clock regresses, it pins to the last
// seen millisecond and increments the sequence; if the sequence saturates
// within one millisecond, it waits for the next one.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence == 1<<seqBits-1 {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	return uint64(ms)<<seqBits | g.sequence
}
