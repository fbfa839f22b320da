// Package postgres implements the store contract on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/engagement-engine/internal/config"
	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL-backed data access for the engine.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository connects a pgx pool using the given configuration.
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{pool: pool, logger: logger}, nil
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes the schema migrations.
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS quests (
			id VARCHAR(64) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			type VARCHAR(32) NOT NULL,
			difficulty VARCHAR(16) DEFAULT 'easy',
			required_level INT DEFAULT 0,
			reward_points BIGINT DEFAULT 0,
			active BOOLEAN DEFAULT TRUE,
			hidden BOOLEAN DEFAULT FALSE,
			promoted BOOLEAN DEFAULT FALSE,
			valid_from TIMESTAMPTZ,
			valid_until TIMESTAMPTZ,
			category VARCHAR(64) DEFAULT '',
			tags TEXT[] DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS quest_completions (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			quest_id VARCHAR(64) NOT NULL REFERENCES quests(id),
			status VARCHAR(16) NOT NULL,
			proof TEXT DEFAULT '',
			completed_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE(user_id, quest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS point_events (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			amount BIGINT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS score_events (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			amount BIGINT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_status_completed ON quest_completions(status, completed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_occurred ON point_events(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_score_events_occurred ON score_events(occurred_at)`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// QuestByID retrieves a quest by id.
func (r *Repository) QuestByID(ctx context.Context, id string) (*domain.Quest, error) {
	query := `
		SELECT id, title, type, difficulty, required_level, reward_points,
		       active, hidden, promoted, valid_from, valid_until, category, tags,
		       created_at, updated_at
		FROM quests
		WHERE id = $1
	`
	var q domain.Quest
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.Title, &q.Type, &q.Difficulty, &q.RequiredLevel, &q.RewardPoints,
		&q.Active, &q.Hidden, &q.Promoted, &q.ValidFrom, &q.ValidUntil, &q.Category, &q.Tags,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Ef(domain.KindNotFound, "quest %s not found", id)
		}
		return nil, fmt.Errorf("getting quest: %w", err)
	}
	return &q, nil
}

// ListQuests retrieves catalog quests matching the filter.
func (r *Repository) ListQuests(ctx context.Context, f store.QuestFilter) ([]domain.Quest, error) {
	query := `
		SELECT id, title, type, difficulty, required_level, reward_points,
		       active, hidden, promoted, valid_from, valid_until, category, tags,
		       created_at, updated_at
		FROM quests
		WHERE ($1::timestamptz IS NULL OR (
			active AND NOT hidden
			AND (valid_from IS NULL OR valid_from <= $1)
			AND (valid_until IS NULL OR valid_until > $1)
		))
		AND ($2::varchar = '' OR category = $2)
		AND ($3::boolean IS NULL OR promoted = $3)
		ORDER BY promoted DESC, created_at DESC
	`
	var eligibleAt any
	if !f.EligibleAt.IsZero() {
		eligibleAt = f.EligibleAt
	}
	rows, err := r.pool.Query(ctx, query, eligibleAt, f.Category, f.Promoted)
	if err != nil {
		return nil, fmt.Errorf("listing quests: %w", err)
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		var q domain.Quest
		err := rows.Scan(
			&q.ID, &q.Title, &q.Type, &q.Difficulty, &q.RequiredLevel, &q.RewardPoints,
			&q.Active, &q.Hidden, &q.Promoted, &q.ValidFrom, &q.ValidUntil, &q.Category, &q.Tags,
			&q.CreatedAt, &q.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning quest: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// CompletionByUserQuest retrieves the single (user, quest) completion row.
func (r *Repository) CompletionByUserQuest(ctx context.Context, userID, questID string) (*domain.QuestCompletion, error) {
	query := `
		SELECT id, user_id, quest_id, status, proof, completed_at, updated_at
		FROM quest_completions
		WHERE user_id = $1 AND quest_id = $2
	`
	var c domain.QuestCompletion
	err := r.pool.QueryRow(ctx, query, userID, questID).Scan(
		&c.ID, &c.UserID, &c.QuestID, &c.Status, &c.Proof, &c.CompletedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "completion not found")
		}
		return nil, fmt.Errorf("getting completion: %w", err)
	}
	return &c, nil
}

// UpsertCompletion inserts or replaces the (user, quest) completion row.
func (r *Repository) UpsertCompletion(ctx context.Context, c *domain.QuestCompletion) error {
	query := `
		INSERT INTO quest_completions (id, user_id, quest_id, status, proof, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, quest_id)
		DO UPDATE SET status = $4, proof = $5, completed_at = $6, updated_at = $7
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.QuestID, string(c.Status), c.Proof, c.CompletedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting completion: %w", err)
	}
	return nil
}

// CompletionsIn retrieves completions matching the filter.
func (r *Repository) CompletionsIn(ctx context.Context, f store.CompletionFilter) ([]domain.QuestCompletion, error) {
	query := `
		SELECT id, user_id, quest_id, status, proof, completed_at, updated_at
		FROM quest_completions
		WHERE ($1::varchar = '' OR status = $1)
		AND ($2::timestamptz IS NULL OR completed_at >= $2)
		AND ($3::timestamptz IS NULL OR completed_at < $3)
	`
	rows, err := r.pool.Query(ctx, query, string(f.Status), nullableTime(f.From), nullableTime(f.Until))
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	defer rows.Close()

	var completions []domain.QuestCompletion
	for rows.Next() {
		var c domain.QuestCompletion
		err := rows.Scan(&c.ID, &c.UserID, &c.QuestID, &c.Status, &c.Proof, &c.CompletedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// AppendPointEvent appends an immutable row to the points ledger.
func (r *Repository) AppendPointEvent(ctx context.Context, e domain.LedgerEvent) error {
	return r.appendEvent(ctx, "point_events", e)
}

// AppendScoreEvent appends an immutable row to the song-score ledger.
func (r *Repository) AppendScoreEvent(ctx context.Context, e domain.LedgerEvent) error {
	return r.appendEvent(ctx, "score_events", e)
}

func (r *Repository) appendEvent(ctx context.Context, table string, e domain.LedgerEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, user_id, amount, occurred_at) VALUES ($1, $2, $3, $4)`, table,
	)
	if _, err := r.pool.Exec(ctx, query, e.ID, e.UserID, e.Amount, e.OccurredAt); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// PointEventsIn retrieves point events inside the filter window.
func (r *Repository) PointEventsIn(ctx context.Context, f store.EventFilter) ([]domain.LedgerEvent, error) {
	return r.eventsIn(ctx, "point_events", f)
}

// ScoreEventsIn retrieves score events inside the filter window.
func (r *Repository) ScoreEventsIn(ctx context.Context, f store.EventFilter) ([]domain.LedgerEvent, error) {
	return r.eventsIn(ctx, "score_events", f)
}

func (r *Repository) eventsIn(ctx context.Context, table string, f store.EventFilter) ([]domain.LedgerEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, amount, occurred_at
		FROM %s
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		AND ($2::timestamptz IS NULL OR occurred_at < $2)
	`, table)

	rows, err := r.pool.Query(ctx, query, nullableTime(f.From), nullableTime(f.Until))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.LedgerEvent
	for rows.Next() {
		var e domain.LedgerEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
