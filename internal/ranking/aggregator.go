// Package ranking computes leaderboards: per-user metric aggregation over
// a time window, deterministic rank assignment, pagination, and self-rank
// lookup for users outside the returned page.
package ranking

import (
	"context"

	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/store"
)

// Aggregator computes the per-user metric for a ranking type inside a
// window. The result set contains only participants: a user with no
// qualifying events in the window is absent, not zero-valued.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Aggregate returns one unordered entry per participating user. The entry's
// basis timestamp is the user's earliest qualifying event in the window.
func (a *Aggregator) Aggregate(ctx context.Context, rtype domain.RankingType, window domain.Window) ([]domain.AggregatedEntry, error) {
	switch rtype {
	case domain.RankingTypePoints:
		events, err := a.store.PointEventsIn(ctx, store.WindowFilter(window))
		if err != nil {
			return nil, domain.Wrap(domain.KindOf(err), "aggregating points", err)
		}
		return sumEvents(events), nil

	case domain.RankingTypeSongs:
		events, err := a.store.ScoreEventsIn(ctx, store.WindowFilter(window))
		if err != nil {
			return nil, domain.Wrap(domain.KindOf(err), "aggregating song scores", err)
		}
		return sumEvents(events), nil

	case domain.RankingTypeQuests:
		completions, err := a.store.CompletionsIn(ctx, store.CompletionFilter{
			From:   window.Start,
			Until:  window.End,
			Status: domain.StatusVerified,
		})
		if err != nil {
			return nil, domain.Wrap(domain.KindOf(err), "aggregating quest completions", err)
		}
		return countCompletions(completions), nil

	default:
		return nil, domain.Ef(domain.KindValidation, "unsupported ranking type %q", rtype)
	}
}

func sumEvents(events []domain.LedgerEvent) []domain.AggregatedEntry {
	acc := make(map[string]*domain.AggregatedEntry)
	for _, e := range events {
		entry, ok := acc[e.UserID]
		if !ok {
			entry = &domain.AggregatedEntry{UserID: e.UserID, BasisTimestamp: e.OccurredAt}
			acc[e.UserID] = entry
		}
		entry.MetricValue += e.Amount
		if e.OccurredAt.Before(entry.BasisTimestamp) {
			entry.BasisTimestamp = e.OccurredAt
		}
	}
	return collect(acc)
}

func countCompletions(completions []domain.QuestCompletion) []domain.AggregatedEntry {
	acc := make(map[string]*domain.AggregatedEntry)
	for _, c := range completions {
		entry, ok := acc[c.UserID]
		if !ok {
			entry = &domain.AggregatedEntry{UserID: c.UserID, BasisTimestamp: c.CompletedAt}
			acc[c.UserID] = entry
		}
		entry.MetricValue++
		if c.CompletedAt.Before(entry.BasisTimestamp) {
			entry.BasisTimestamp = c.CompletedAt
		}
	}
	return collect(acc)
}

func collect(acc map[string]*domain.AggregatedEntry) []domain.AggregatedEntry {
	out := make([]domain.AggregatedEntry, 0, len(acc))
	for _, entry := range acc {
		out = append(out, *entry)
	}
	return out
}
