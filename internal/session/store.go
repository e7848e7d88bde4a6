package session

import (
	"sort"
	"sync"
)

// Store is the concurrency-safe registry of active sessions keyed by event
// ID. Mutations on the same event serialize through a per-entry mutex;
// mutations on different events proceed independently. The store never
// touches I/O.
type Store struct {
	mu      sync.RWMutex
	entries map[uint64]*entry
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[uint64]*entry)}
}

// Create inserts a new ACTIVE session. It fails with ErrDuplicateEvent when
// the event ID is already present. committed, when non-nil, runs while the
// registration lock is still held, so it observes the new event before any
// Mutate on it can; it must not block.
func (st *Store) Create(s *Session, committed func()) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.entries[s.EventID]; ok {
		return ErrDuplicateEvent
	}
	st.entries[s.EventID] = &entry{s: s}
	if committed != nil {
		committed()
	}
	return nil
}

// Get returns a snapshot of the session or ErrNotFound.
func (st *Store) Get(eventID uint64) (*Session, error) {
	st.mu.RLock()
	e, ok := st.entries[eventID]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

// Mutate applies fn to the session under the per-event lock. Two mutations
// on the same event never interleave; mutations on different events never
// block each other. Errors from fn propagate unchanged.
func (st *Store) Mutate(eventID uint64, fn func(*Session) error) error {
	st.mu.RLock()
	e, ok := st.entries[eventID]
	st.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// RemoveActive detaches the event from the active index. Idempotent; the
// session object itself survives for anyone still holding a snapshot.
func (st *Store) RemoveActive(eventID uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.entries, eventID)
}

// ListActive returns snapshots of every active session, ordered by event ID.
// Used by rehydration checks and diagnostics only.
func (st *Store) ListActive() []*Session {
	st.mu.RLock()
	entries := make([]*entry, 0, len(st.entries))
	for _, e := range st.entries {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	out := make([]*Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.s.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// Len reports the number of active sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}
