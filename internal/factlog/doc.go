// Package factlog implements the durable, append-only log of session facts.
//
// # Overview
//
// Every state-affecting action on an SOS session (opened, resource requested,
// helper opted in, closed) is recorded as a fact. The log is persisted in
// Pebble with lexicographically ordered keys:
//   - sos/facts/m           (metadata: lastSeq)
//   - sos/facts/e/{seq_be8} (entries)
//
// Records are stored as: varint kindLen | kind | payload | crc32c(kind|payload),
// where payload is the JSON-encoded fact body.
//
// API surface (internal)
//
//	l, _ := factlog.Open(db)
//	seq, _ := l.Append(ctx, factlog.Opened(eventID, chatID, requesterID))
//	facts, corrupt, _ := l.ReadAll(ctx) // full-scan read-back for rehydration
//
// Appends never participate in the in-memory transition; a failed append is
// logged (and optionally retried) but the live session stays authoritative.
package factlog
