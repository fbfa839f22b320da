package domain

import (
	"time"
)

// VerificationStatus gates whether a quest completion counts toward the
// "quests" ranking metric. Only verified completions are aggregated.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
)

// IsValid reports whether the status is a known variant.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal status
// transition. The raw data model cannot prevent illegal moves (e.g.
// verified back to pending), so the recorder enforces this table:
//
//	pending  -> verified | rejected
//	rejected -> pending  (resubmission with new proof)
func (s VerificationStatus) CanTransition(next VerificationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusVerified || next == StatusRejected
	case StatusRejected:
		return next == StatusPending
	}
	return false
}

// QuestCompletion records one user completing one quest. At most one row
// exists per (user, quest); re-submission updates the existing row.
type QuestCompletion struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	QuestID     string             `json:"quest_id"`
	Status      VerificationStatus `json:"status"`
	Proof       string             `json:"proof,omitempty"`
	CompletedAt time.Time          `json:"completed_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Counted reports whether this completion contributes to ranking metrics.
func (c *QuestCompletion) Counted() bool {
	return c.Status == StatusVerified
}
