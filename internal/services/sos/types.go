package sossvc

import (
	"context"

	"github.com/aboly3304/sos-bot/internal/factlog"
	"github.com/aboly3304/sos-bot/internal/profile"
)

// FactAppender persists facts to the durable log. Append failures are
// absorbed at the call site; the in-memory state stays authoritative.
type FactAppender interface {
	Append(ctx context.Context, f factlog.Fact) (uint64, error)
}

// InfoLookup resolves a participant's supplementary information. An empty
// Info with a nil error means nothing is on file.
type InfoLookup interface {
	SupplementaryInfo(ctx context.Context, participantID int64) (profile.Info, error)
}

// OptInResult reports the outcome of an accepted opt-in.
type OptInResult struct {
	// First is false when the participant had already opted in; the repeat
	// is acknowledged to the caller but changes nothing.
	First bool
	// Helpers is the helper count after the opt-in.
	Helpers int
}

// HelpersView is the read-only answer to a view-helpers action.
type HelpersView struct {
	// Helpers is ordered by opt-in time. Empty means no helpers yet.
	Helpers []int64
	// Closed hints that the session is no longer active. Resolve removes
	// the event from the store, so a view after close normally fails with
	// ErrNotFound instead; the hint covers the window before removal.
	Closed bool
}
