package store

import (
	"context"
	"sync"

	"github.com/engagement-engine/internal/domain"
	"github.com/google/uuid"
)

// Memory is an in-memory Store used by tests and local development. It is
// safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	quests      map[string]domain.Quest
	completions map[string]domain.QuestCompletion // key: userID + "\x00" + questID
	pointEvents []domain.LedgerEvent
	scoreEvents []domain.LedgerEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		quests:      make(map[string]domain.Quest),
		completions: make(map[string]domain.QuestCompletion),
	}
}

func completionKey(userID, questID string) string {
	return userID + "\x00" + questID
}

// PutQuest adds or replaces a catalog quest.
func (m *Memory) PutQuest(q domain.Quest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quests[q.ID] = q
}

// QuestByID returns the quest with the given id.
func (m *Memory) QuestByID(ctx context.Context, id string) (*domain.Quest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quests[id]
	if !ok {
		return nil, domain.Ef(domain.KindNotFound, "quest %s not found", id)
	}
	return &q, nil
}

// ListQuests returns catalog quests matching the filter.
func (m *Memory) ListQuests(ctx context.Context, f QuestFilter) ([]domain.Quest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Quest
	for _, q := range m.quests {
		if !f.EligibleAt.IsZero() && !q.Eligible(f.EligibleAt) {
			continue
		}
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Promoted != nil && q.Promoted != *f.Promoted {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// CompletionByUserQuest returns the single completion row for the pair.
func (m *Memory) CompletionByUserQuest(ctx context.Context, userID, questID string) (*domain.QuestCompletion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.completions[completionKey(userID, questID)]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "completion not found")
	}
	return &c, nil
}

// UpsertCompletion inserts or replaces the (user, quest) row.
func (m *Memory) UpsertCompletion(ctx context.Context, c *domain.QuestCompletion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	m.completions[completionKey(c.UserID, c.QuestID)] = *c
	return nil
}

// CompletionsIn returns completions matching the filter.
func (m *Memory) CompletionsIn(ctx context.Context, f CompletionFilter) ([]domain.QuestCompletion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	window := EventFilter{From: f.From, Until: f.Until}
	var out []domain.QuestCompletion
	for _, c := range m.completions {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if !window.Matches(c.CompletedAt) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// AppendPointEvent appends an immutable row to the points ledger.
func (m *Memory) AppendPointEvent(ctx context.Context, e domain.LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	m.pointEvents = append(m.pointEvents, e)
	return nil
}

// AppendScoreEvent appends an immutable row to the song-score ledger.
func (m *Memory) AppendScoreEvent(ctx context.Context, e domain.LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	m.scoreEvents = append(m.scoreEvents, e)
	return nil
}

// PointEventsIn returns point events matching the filter.
func (m *Memory) PointEventsIn(ctx context.Context, f EventFilter) ([]domain.LedgerEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterEvents(m.pointEvents, f), nil
}

// ScoreEventsIn returns score events matching the filter.
func (m *Memory) ScoreEventsIn(ctx context.Context, f EventFilter) ([]domain.LedgerEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterEvents(m.scoreEvents, f), nil
}

func filterEvents(events []domain.LedgerEvent, f EventFilter) []domain.LedgerEvent {
	var out []domain.LedgerEvent
	for _, e := range events {
		if f.Matches(e.OccurredAt) {
			out = append(out, e)
		}
	}
	return out
}
