// Package redis provides session-token resolution backed by Redis.
// Session issuance belongs to the auth service; the engine only validates
// tokens handed to it and never writes sessions (outside of tests).
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/engagement-engine/internal/config"
	"github.com/engagement-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Session identifies an authenticated caller.
type Session struct {
	UserID    string
	Moderator bool
}

// SessionStore resolves bearer tokens into sessions.
type SessionStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSessionStore connects a Redis client using the given configuration.
func NewSessionStore(cfg *config.RedisConfig, logger *slog.Logger) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SessionStore{client: client, logger: logger}, nil
}

// Close closes the Redis connection.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Resolve looks up the session for a bearer token. An unknown or expired
// token is an unauthorized error, not an internal one.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return nil, domain.Wrap(domain.KindOf(err), "resolving session", err)
	}
	if len(fields) == 0 {
		return nil, domain.E(domain.KindUnauthorized, "invalid or expired session token")
	}
	return &Session{
		UserID:    fields["user_id"],
		Moderator: fields["moderator"] == "1",
	}, nil
}
