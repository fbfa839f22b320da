// Package worker runs the periodic live-feed broadcaster. Each cycle it
// recomputes the top slice of every board that currently has subscribers
// and hands the snapshot to the websocket hub. Boards with no audience
// cost nothing.
package worker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/engagement-engine/internal/config"
	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/ranking"
	"github.com/engagement-engine/internal/websocket"
)

// Broadcaster periodically pushes fresh board snapshots to the hub.
type Broadcaster struct {
	rankings *ranking.Service
	hub      *websocket.Hub
	config   *config.BroadcastConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewBroadcaster creates a broadcast worker.
func NewBroadcaster(
	rankings *ranking.Service,
	hub *websocket.Hub,
	cfg *config.BroadcastConfig,
	logger *slog.Logger,
) *Broadcaster {
	return &Broadcaster{
		rankings: rankings,
		hub:      hub,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background broadcast loop.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.mu.Unlock()

	b.logger.Info("broadcast worker started", "interval", b.config.Interval)

	go b.run(ctx)
	return nil
}

// Stop stops the background broadcast loop.
func (b *Broadcaster) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	close(b.stopCh)
	<-b.doneCh

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()

	b.logger.Info("broadcast worker stopped")
	return nil
}

// run is the main worker loop.
func (b *Broadcaster) run(ctx context.Context) {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.broadcastAll(ctx)
		}
	}
}

// broadcastAll recomputes and pushes every subscribed board.
func (b *Broadcaster) broadcastAll(ctx context.Context) {
	boards := b.hub.SubscribedBoards()
	if len(boards) == 0 {
		return
	}

	start := time.Now()
	pushed := 0

	for _, board := range boards {
		if err := b.broadcastBoard(ctx, board); err != nil {
			b.logger.Error("failed to broadcast board", "board", board, "error", err)
			continue
		}
		pushed++
	}

	b.logger.Debug("broadcast cycle completed",
		"duration", time.Since(start),
		"boards", pushed,
	)
}

func (b *Broadcaster) broadcastBoard(ctx context.Context, board string) error {
	rtype, period, ok := strings.Cut(board, ":")
	if !ok {
		return domain.Ef(domain.KindValidation, "malformed board key %q", board)
	}

	cycleCtx, cancel := context.WithTimeout(ctx, b.config.Interval)
	defer cancel()

	snapshot, err := b.rankings.GetLeaderboard(cycleCtx, ranking.Query{
		Type:     domain.RankingType(rtype),
		Period:   domain.WindowPeriod(period),
		Page:     1,
		PageSize: b.config.TopN,
	})
	if err != nil {
		return err
	}

	b.hub.BroadcastBoard(board, websocket.BoardUpdate{
		Board:    board,
		Rankings: snapshot.Rankings,
		Total:    snapshot.Pagination.Total,
	})
	return nil
}

// IsRunning reports whether the worker is currently running.
func (b *Broadcaster) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}
