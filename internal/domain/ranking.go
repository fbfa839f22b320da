package domain

import (
	"time"
)

// RankingType selects the metric a leaderboard ranks by.
type RankingType string

const (
	RankingTypePoints RankingType = "points"
	RankingTypeQuests RankingType = "quests"
	RankingTypeSongs  RankingType = "songs"
)

// IsValid reports whether the ranking type is a supported variant. An
// unrecognized type is rejected up front rather than falling through to
// an empty query.
func (t RankingType) IsValid() bool {
	switch t {
	case RankingTypePoints, RankingTypeQuests, RankingTypeSongs:
		return true
	}
	return false
}

// WindowPeriod names the time window a leaderboard aggregates over.
type WindowPeriod string

const (
	PeriodWeekly  WindowPeriod = "weekly"
	PeriodMonthly WindowPeriod = "monthly"
	PeriodAllTime WindowPeriod = "alltime"
)

// IsValid reports whether the period is a supported variant.
func (p WindowPeriod) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// Window is a half-open instant interval [Start, End). A zero Start or
// End means unbounded on that side (all-time).
type Window struct {
	Period WindowPeriod `json:"period"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// Bounded reports whether the window has a finite start.
func (w Window) Bounded() bool {
	return !w.Start.IsZero()
}

// WindowFor computes the window for a period relative to now, in UTC.
// Weekly is the current ISO week (Monday 00:00), monthly the current
// calendar month, all-time unbounded.
func WindowFor(period WindowPeriod, now time.Time) Window {
	now = now.UTC()
	switch period {
	case PeriodWeekly:
		start := startOfISOWeek(now)
		return Window{Period: period, Start: start, End: start.AddDate(0, 0, 7)}
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Period: period, Start: start, End: start.AddDate(0, 1, 0)}
	default:
		return Window{Period: PeriodAllTime}
	}
}

func startOfISOWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

// AggregatedEntry is one user's metric inside a window, before ranks are
// assigned. BasisTimestamp is the instant of the user's earliest
// contributing event and is used only for tie-breaking.
type AggregatedEntry struct {
	UserID         string
	MetricValue    int64
	BasisTimestamp time.Time
}

// RankingEntry is an aggregated entry with its 1-based positional rank.
type RankingEntry struct {
	Rank             int64  `json:"rank"`
	UserID           string `json:"user_id"`
	MetricValue      int64  `json:"metric_value"`
	IsRequestingUser bool   `json:"is_requesting_user,omitempty"`
}

// Pagination describes the slice of the leaderboard that was returned.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// Leaderboard is a paginated, read-computed ranking snapshot.
type Leaderboard struct {
	Rankings           []RankingEntry `json:"rankings"`
	CurrentUserRanking *RankingEntry  `json:"currentUserRanking"`
	Period             Window         `json:"period"`
	Pagination         Pagination     `json:"-"`
}
