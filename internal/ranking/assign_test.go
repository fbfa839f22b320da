package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagement-engine/internal/domain"
)

func entry(userID string, metric int64, basis time.Time) domain.AggregatedEntry {
	return domain.AggregatedEntry{UserID: userID, MetricValue: metric, BasisTimestamp: basis}
}

func TestSortEntries_Ordering(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	entries := []domain.AggregatedEntry{
		entry("carol", 150, t0),
		entry("bob", 300, t0.Add(time.Hour)),
		entry("alice", 300, t0), // same metric as bob, earlier basis
	}

	SortEntries(entries)

	assert.Equal(t, "alice", entries[0].UserID, "earlier basis wins the metric tie")
	assert.Equal(t, "bob", entries[1].UserID)
	assert.Equal(t, "carol", entries[2].UserID)
}

func TestSortEntries_FullTieFallsBackToUserID(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	entries := []domain.AggregatedEntry{
		entry("zed", 100, t0),
		entry("amy", 100, t0),
	}

	SortEntries(entries)

	assert.Equal(t, "amy", entries[0].UserID)
	assert.Equal(t, "zed", entries[1].UserID)
}

func TestAssignRanks_PositionalNeverShared(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	entries := []domain.AggregatedEntry{
		entry("a", 100, t0),
		entry("b", 100, t0),
		entry("c", 100, t0),
	}
	SortEntries(entries)

	page, total := AssignRanks(entries, 1, 10)

	require.Len(t, page, 3)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), page[0].Rank)
	assert.Equal(t, int64(2), page[1].Rank)
	assert.Equal(t, int64(3), page[2].Rank)
}

func TestAssignRanks_Pagination(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	var entries []domain.AggregatedEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry(string(rune('a'+i)), int64(100-i), t0))
	}
	SortEntries(entries)

	page, total := AssignRanks(entries, 2, 2)

	require.Len(t, page, 2)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, int64(3), page[0].Rank)
	assert.Equal(t, "c", page[0].UserID)
	assert.Equal(t, int64(4), page[1].Rank)

	// Last page is short, not padded.
	page, _ = AssignRanks(entries, 3, 2)
	require.Len(t, page, 1)
	assert.Equal(t, int64(5), page[0].Rank)
}

func TestAssignRanks_OutOfRangePageIsEmpty(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []domain.AggregatedEntry{entry("a", 10, t0)}

	page, total := AssignRanks(entries, 7, 20)

	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.Equal(t, int64(1), total)
}

func TestAssignRanks_HugePageDoesNotOverflow(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []domain.AggregatedEntry{entry("a", 10, t0)}

	// A page number large enough that (page-1)*pageSize wraps negative in
	// plain int arithmetic must still resolve to an empty page.
	page, total := AssignRanks(entries, 1<<60, 100)

	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.Equal(t, int64(1), total)
}

func TestAssignRanks_NoParticipants(t *testing.T) {
	page, total := AssignRanks(nil, 1, 20)

	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.Equal(t, int64(0), total)
}

func TestResolveSelf_OnPage(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []domain.AggregatedEntry{
		entry("alice", 300, t0),
		entry("bob", 200, t0),
	}
	SortEntries(entries)
	page, _ := AssignRanks(entries, 1, 10)

	self := ResolveSelf("bob", entries, page)

	assert.Nil(t, self, "no extra entry when the user is already on the page")
	assert.True(t, page[1].IsRequestingUser)
	assert.False(t, page[0].IsRequestingUser)
}

func TestResolveSelf_OffPage(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []domain.AggregatedEntry{
		entry("alice", 300, t0),
		entry("bob", 200, t0),
		entry("carol", 100, t0),
	}
	SortEntries(entries)
	page, _ := AssignRanks(entries, 1, 2)

	self := ResolveSelf("carol", entries, page)

	require.NotNil(t, self)
	assert.Equal(t, int64(3), self.Rank)
	assert.Equal(t, "carol", self.UserID)
	assert.Equal(t, int64(100), self.MetricValue)
	assert.True(t, self.IsRequestingUser)
}

func TestResolveSelf_NoActivity(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []domain.AggregatedEntry{entry("alice", 300, t0)}
	SortEntries(entries)
	page, _ := AssignRanks(entries, 1, 10)

	self := ResolveSelf("dave", entries, page)

	assert.Nil(t, self, "a user with no qualifying activity has no rank, not rank zero")
}
