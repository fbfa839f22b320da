// Package store defines the data-access contract the engine depends on.
// Filters are explicit specification values rather than chained query
// builders, so every filter combination the engine can issue is
// enumerable and testable against the in-memory implementation.
package store

import (
	"context"
	"time"

	"github.com/engagement-engine/internal/domain"
)

// EventFilter selects ledger rows by occurrence window. Zero bounds mean
// unbounded on that side; the interval is half-open [From, Until).
type EventFilter struct {
	From  time.Time
	Until time.Time
}

// Matches reports whether an instant satisfies the filter.
func (f EventFilter) Matches(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.Until.IsZero() && !t.Before(f.Until) {
		return false
	}
	return true
}

// WindowFilter converts a ranking window into an event filter.
func WindowFilter(w domain.Window) EventFilter {
	return EventFilter{From: w.Start, Until: w.End}
}

// CompletionFilter selects quest completions. An empty Status matches any
// status; the completion instant is filtered half-open like EventFilter.
type CompletionFilter struct {
	From   time.Time
	Until  time.Time
	Status domain.VerificationStatus
}

// QuestFilter selects catalog quests. EligibleAt, when set, keeps only
// quests displayable at that instant (active, not hidden, inside their
// validity period).
type QuestFilter struct {
	EligibleAt time.Time
	Category   string
	Promoted   *bool
}

// Store is the data-access collaborator behind the engine. Implementations
// must honor the caller's context deadline on every call and must never
// turn a query failure into an empty result.
type Store interface {
	// Quest catalog.
	QuestByID(ctx context.Context, id string) (*domain.Quest, error)
	ListQuests(ctx context.Context, f QuestFilter) ([]domain.Quest, error)

	// Quest completions. UpsertCompletion inserts or replaces the single
	// row keyed by (user, quest).
	CompletionByUserQuest(ctx context.Context, userID, questID string) (*domain.QuestCompletion, error)
	UpsertCompletion(ctx context.Context, c *domain.QuestCompletion) error
	CompletionsIn(ctx context.Context, f CompletionFilter) ([]domain.QuestCompletion, error)

	// Immutable ledgers behind the points and songs metrics.
	AppendPointEvent(ctx context.Context, e domain.LedgerEvent) error
	AppendScoreEvent(ctx context.Context, e domain.LedgerEvent) error
	PointEventsIn(ctx context.Context, f EventFilter) ([]domain.LedgerEvent, error)
	ScoreEventsIn(ctx context.Context, f EventFilter) ([]domain.LedgerEvent, error)
}
