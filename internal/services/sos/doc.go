// Package sossvc implements the SOS session engine: it validates and applies
// participant actions, decides the single authoritative outcome under
// concurrent pressure, and produces the facts to persist plus the
// notifications to emit.
//
// # Concurrency
//
// Every mutating operation on a given event runs inside the session store's
// per-event exclusion region, so two opt-ins, or an opt-in racing a resolve,
// on the same event serialize while different events never block each other.
// The transition decides the new state and the facts/notifications while
// holding exclusion; fact appends and notification deliveries happen after
// the in-memory commit and never roll it back. A slow notification therefore
// never stalls another participant's action on the same event.
package sossvc
