package ranking

import (
	"context"
	"log/slog"
	"time"

	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/store"
)

// Service is the leaderboard façade. Each call is a stateless
// read-computed snapshot: the full sorted order is built once per request
// and consulted for both the page slice and the self-rank lookup.
type Service struct {
	aggregator *Aggregator
	logger     *slog.Logger
	now        func() time.Time

	defaultPageSize int
	maxPageSize     int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPageSizes overrides the default and maximum page sizes.
func WithPageSizes(def, max int) Option {
	return func(s *Service) {
		s.defaultPageSize = def
		s.maxPageSize = max
	}
}

// NewService creates a leaderboard service over the given store.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		aggregator:      NewAggregator(st),
		logger:          logger,
		now:             time.Now,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query carries the validated-on-entry parameters of a leaderboard read.
// RequestingUserID is empty for anonymous callers.
type Query struct {
	Type             domain.RankingType
	Period           domain.WindowPeriod
	Page             int
	PageSize         int
	RequestingUserID string
}

// GetLeaderboard validates the query, aggregates the metric over the
// window, assigns ranks, slices the page, and resolves the requesting
// user's own rank when they are authenticated.
func (s *Service) GetLeaderboard(ctx context.Context, q Query) (*domain.Leaderboard, error) {
	if !q.Type.IsValid() {
		return nil, domain.Ef(domain.KindValidation, "unknown ranking type %q", q.Type).
			WithDetails(map[string]any{"allowed": []string{"points", "quests", "songs"}})
	}
	if !q.Period.IsValid() {
		return nil, domain.Ef(domain.KindValidation, "unknown ranking window %q", q.Period).
			WithDetails(map[string]any{"allowed": []string{"weekly", "monthly", "alltime"}})
	}
	if q.Page < 1 {
		return nil, domain.E(domain.KindValidation, "page must be >= 1")
	}
	if q.PageSize == 0 {
		q.PageSize = s.defaultPageSize
	}
	if q.PageSize < 1 || q.PageSize > s.maxPageSize {
		return nil, domain.Ef(domain.KindValidation, "limit must be between 1 and %d", s.maxPageSize)
	}

	window := domain.WindowFor(q.Period, s.now())

	entries, err := s.aggregator.Aggregate(ctx, q.Type, window)
	if err != nil {
		// An aggregation failure is never an empty leaderboard.
		return nil, err
	}

	// Sorted once; reused for the page and the self-rank scan.
	SortEntries(entries)
	page, total := AssignRanks(entries, q.Page, q.PageSize)

	var self *domain.RankingEntry
	if q.RequestingUserID != "" {
		self = ResolveSelf(q.RequestingUserID, entries, page)
	}

	totalPages := (total + int64(q.PageSize) - 1) / int64(q.PageSize)

	return &domain.Leaderboard{
		Rankings:           page,
		CurrentUserRanking: self,
		Period:             window,
		Pagination: domain.Pagination{
			Page:       q.Page,
			Limit:      q.PageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
