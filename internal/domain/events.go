package domain

import (
	"time"
)

// EventKind tags a ledger event with the metric it feeds.
type EventKind string

const (
	EventKindPoints    EventKind = "points"
	EventKindSongScore EventKind = "song_score"
)

// IsValid reports whether the event kind is known.
func (k EventKind) IsValid() bool {
	return k == EventKindPoints || k == EventKindSongScore
}

// LedgerEvent is one immutable row in the points or song-score ledger.
// Rows are appended by the ingestion path and never mutated.
type LedgerEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EngagementEvent is the wire format consumed from the event stream.
type EngagementEvent struct {
	UserID     string    `json:"user_id"`
	Kind       EventKind `json:"kind"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}
