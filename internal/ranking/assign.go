package ranking

import (
	"sort"

	"github.com/engagement-engine/internal/domain"
)

// SortEntries orders aggregated entries into the canonical ranking order:
// metric value descending, then basis timestamp ascending (the earlier
// contributor wins the tie), then user id ascending. The ordering is a
// total order, so rank assignment is deterministic.
func SortEntries(entries []domain.AggregatedEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.MetricValue != b.MetricValue {
			return a.MetricValue > b.MetricValue
		}
		if !a.BasisTimestamp.Equal(b.BasisTimestamp) {
			return a.BasisTimestamp.Before(b.BasisTimestamp)
		}
		return a.UserID < b.UserID
	})
}

// AssignRanks slices one page out of sorted entries and attaches 1-based
// positional ranks. Entries with equal metric values still get strictly
// increasing ranks in tie-break order; ranks are never shared. An
// out-of-range page yields an empty page, not an error.
func AssignRanks(sorted []domain.AggregatedEntry, page, pageSize int) ([]domain.RankingEntry, int64) {
	total := int64(len(sorted))

	// (page-1)*pageSize overflows plain int for absurd page numbers; any
	// page past len/pageSize is out of range, so bound it before
	// multiplying.
	if page-1 > len(sorted)/pageSize {
		return []domain.RankingEntry{}, total
	}
	offset := (page - 1) * pageSize
	if offset >= len(sorted) {
		return []domain.RankingEntry{}, total
	}
	end := offset + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}

	out := make([]domain.RankingEntry, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, domain.RankingEntry{
			Rank:        int64(i + 1),
			UserID:      sorted[i].UserID,
			MetricValue: sorted[i].MetricValue,
		})
	}
	return out, total
}

// ResolveSelf locates the requesting user. If they are already on the
// page, that row is flagged and no extra entry is returned. Otherwise
// their positional rank is found by scanning the full sorted order; a
// user with no qualifying activity resolves to nil, never rank zero.
func ResolveSelf(userID string, sorted []domain.AggregatedEntry, page []domain.RankingEntry) *domain.RankingEntry {
	for i := range page {
		if page[i].UserID == userID {
			page[i].IsRequestingUser = true
			return nil
		}
	}
	for i := range sorted {
		if sorted[i].UserID == userID {
			return &domain.RankingEntry{
				Rank:             int64(i + 1),
				UserID:           userID,
				MetricValue:      sorted[i].MetricValue,
				IsRequestingUser: true,
			}
		}
	}
	return nil
}
