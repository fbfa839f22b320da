package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowFor_Weekly(t *testing.T) {
	// Wednesday 2025-03-12, somewhere mid-week.
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	w := WindowFor(PeriodWeekly, now)

	assert.Equal(t, PeriodWeekly, w.Period)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), w.Start, "week starts Monday 00:00 UTC")
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), w.End)
}

func TestWindowFor_WeeklyOnSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	now := time.Date(2025, 3, 16, 23, 59, 59, 0, time.UTC)
	w := WindowFor(PeriodWeekly, now)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestWindowFor_WeeklyCrossesMonthBoundary(t *testing.T) {
	// Tuesday 2025-04-01; the ISO week started Monday March 31.
	now := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	w := WindowFor(PeriodWeekly, now)

	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC), w.End)
}

func TestWindowFor_Monthly(t *testing.T) {
	now := time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)
	w := WindowFor(PeriodMonthly, now)

	assert.Equal(t, PeriodMonthly, w.Period)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), w.End)
}

func TestWindowFor_AllTime(t *testing.T) {
	w := WindowFor(PeriodAllTime, time.Now())

	assert.Equal(t, PeriodAllTime, w.Period)
	assert.True(t, w.Start.IsZero())
	assert.True(t, w.End.IsZero())
	assert.False(t, w.Bounded())
}

func TestWindowFor_NonUTCInput(t *testing.T) {
	// Boundaries are computed in UTC regardless of the caller's zone.
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, loc) // still Sunday March 9 in UTC
	w := WindowFor(PeriodWeekly, now)

	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestWindow_ContainsHalfOpen(t *testing.T) {
	w := Window{
		Start: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, w.Contains(w.Start), "start instant is included")
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End), "end instant is excluded")
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestWindow_ContainsUnbounded(t *testing.T) {
	var w Window
	assert.True(t, w.Contains(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Now().Add(100*24*time.Hour)))
}

func TestRankingType_IsValid(t *testing.T) {
	assert.True(t, RankingTypePoints.IsValid())
	assert.True(t, RankingTypeQuests.IsValid())
	assert.True(t, RankingTypeSongs.IsValid())
	assert.False(t, RankingType("streaks").IsValid())
	assert.False(t, RankingType("").IsValid())
}

func TestWindowPeriod_IsValid(t *testing.T) {
	assert.True(t, PeriodWeekly.IsValid())
	assert.True(t, PeriodMonthly.IsValid())
	assert.True(t, PeriodAllTime.IsValid())
	assert.False(t, WindowPeriod("daily").IsValid())
}
