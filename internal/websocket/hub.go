// Package websocket pushes live board snapshots and completion notices to
// subscribed clients. Boards stay read-computed: every push carries a
// fresh façade read, never incrementally maintained state.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/engagement-engine/internal/domain"
)

// Message types exchanged with clients.
const (
	MessageTypeBoardUpdate        = "board_update"
	MessageTypeCompletionRecorded = "completion_recorded"
	MessageTypeSubscribe          = "subscribe"
	MessageTypeUnsubscribe        = "unsubscribe"
	MessageTypePing               = "ping"
	MessageTypePong               = "pong"
	MessageTypeError              = "error"
)

// BoardKey identifies one leaderboard variant, e.g. "points:weekly".
func BoardKey(rtype domain.RankingType, period domain.WindowPeriod) string {
	return string(rtype) + ":" + string(period)
}

// Message represents a WebSocket message.
type Message struct {
	Type      string    `json:"type"`
	Board     string    `json:"board,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BoardUpdate carries a freshly computed top slice for broadcast.
type BoardUpdate struct {
	Board    string                `json:"board"`
	Rankings []domain.RankingEntry `json:"rankings"`
	Total    int64                 `json:"total"`
}

// CompletionNotice announces a recorded or reviewed completion. Only
// verified completions move the quests metric, so the status is included.
type CompletionNotice struct {
	UserID  string                    `json:"user_id"`
	QuestID string                    `json:"quest_id"`
	Status  domain.VerificationStatus `json:"status"`
}

// Hub maintains the set of active clients and fans out board messages.
type Hub struct {
	// Registered clients by board key
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	board  string
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest),
		unsubscribe: make(chan *subscriptionRequest),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes hub events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client connected", "client_id", client.id)

		case client := <-h.unregister:
			h.dropClient(client)

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.clients[req.board] == nil {
				h.clients[req.board] = make(map[*Client]bool)
			}
			h.clients[req.board][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "board", req.board)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if subs := h.clients[req.board]; subs != nil {
				delete(subs, req.client)
				if len(subs) == 0 {
					delete(h.clients, req.board)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop shuts down the hub and disconnects all clients.
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.allClients {
		close(client.send)
	}
	h.allClients = make(map[*Client]bool)
	h.clients = make(map[string]map[*Client]bool)
}

func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)
	for board, subs := range h.clients {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.clients, board)
		}
	}
	close(client.send)
	h.logger.Debug("client disconnected", "client_id", client.id)
}

// deliver sends a message to its board's subscribers, or to everyone when
// the message has no board.
func (h *Hub) deliver(msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.allClients
	if msg.Board != "" {
		targets = h.clients[msg.Board]
	}
	for client := range targets {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop the frame rather than block the hub.
			h.logger.Warn("dropping message for slow client", "client_id", client.id)
		}
	}
}

// BroadcastBoard pushes a board snapshot to that board's subscribers.
func (h *Hub) BroadcastBoard(board string, update BoardUpdate) {
	select {
	case h.broadcast <- &Message{
		Type:      MessageTypeBoardUpdate,
		Board:     board,
		Data:      update,
		Timestamp: time.Now().UTC(),
	}:
	case <-h.ctx.Done():
	}
}

// NotifyCompletion announces a completion to all connected clients.
func (h *Hub) NotifyCompletion(c *domain.QuestCompletion) {
	select {
	case h.broadcast <- &Message{
		Type: MessageTypeCompletionRecorded,
		Data: CompletionNotice{
			UserID:  c.UserID,
			QuestID: c.QuestID,
			Status:  c.Status,
		},
		Timestamp: time.Now().UTC(),
	}:
	case <-h.ctx.Done():
	}
}

// SubscribedBoards returns the board keys that currently have subscribers.
func (h *Hub) SubscribedBoards() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	boards := make([]string, 0, len(h.clients))
	for board := range h.clients {
		boards = append(boards, board)
	}
	return boards
}

// TotalConnections returns the number of connected clients.
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
