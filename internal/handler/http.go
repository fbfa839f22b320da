package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/quest"
	"github.com/engagement-engine/internal/ranking"
	"github.com/engagement-engine/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler provides the HTTP surface of the engagement engine.
type Handler struct {
	rankings       *ranking.Service
	recorder       *quest.Recorder
	sessions       SessionResolver
	hub            *websocket.Hub
	logger         *slog.Logger
	requestTimeout time.Duration
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	rankings *ranking.Service,
	recorder *quest.Recorder,
	sessions SessionResolver,
	hub *websocket.Hub,
	logger *slog.Logger,
	requestTimeout time.Duration,
) *Handler {
	if requestTimeout == 0 {
		requestTimeout = 10 * time.Second
	}
	return &Handler{
		rankings:       rankings,
		recorder:       recorder,
		sessions:       sessions,
		hub:            hub,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

// errorBody is the shared error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// leaderboardBody is the rankings response envelope.
type leaderboardBody struct {
	Data       leaderboardData   `json:"data"`
	Pagination domain.Pagination `json:"pagination"`
}

type leaderboardData struct {
	Rankings           []domain.RankingEntry `json:"rankings"`
	CurrentUserRanking *domain.RankingEntry  `json:"currentUserRanking"`
	Period             domain.Window         `json:"period"`
}

// Router creates and configures the HTTP router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(h.withSession)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rankings/{window}", h.GetRankings)

		r.Route("/quests", func(r chi.Router) {
			r.Get("/", h.ListQuests)
			r.Post("/{questID}/completions", h.requireSession(h.RecordCompletion))
			r.Post("/{questID}/completions/{userID}/review", h.requireModerator(h.ReviewCompletion))
		})
	})

	return r
}

// corsMiddleware adds CORS headers for the front-end clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps an error to the shared envelope and its HTTP status.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)

	body := errorBody{Error: errorDetail{Code: string(kind)}}
	var e *domain.Error
	if kind != domain.KindInternal && errors.As(err, &e) {
		body.Error.Message = e.Message
		body.Error.Details = e.Details
	} else if kind == domain.KindUpstreamTimeout {
		body.Error.Message = "upstream store deadline exceeded; retry with backoff"
		h.logger.Warn("store deadline exceeded", "error", err)
	} else {
		// Internal causes stay in the logs, not in responses.
		body.Error.Message = "internal server error"
		h.logger.Error("request failed", "error", err)
	}

	h.writeJSON(w, kind.HTTPStatus(), body)
}

// requestContext bounds a request by the configured store deadline.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleWebSocket upgrades the connection for the live board feed.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetRankings serves GET /rankings/{window}?type=&page=&limit=.
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	q := ranking.Query{
		Type:   domain.RankingType(r.URL.Query().Get("type")),
		Period: domain.WindowPeriod(chi.URLParam(r, "window")),
		Page:   1,
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			h.writeError(w, domain.E(domain.KindValidation, "page must be an integer"))
			return
		}
		q.Page = page
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			// A zero limit would otherwise be indistinguishable from an
			// absent one and silently take the default page size.
			h.writeError(w, domain.E(domain.KindValidation, "limit must be a positive integer"))
			return
		}
		q.PageSize = limit
	}

	if session := sessionFrom(r.Context()); session != nil {
		q.RequestingUserID = session.UserID
	}

	board, err := h.rankings.GetLeaderboard(ctx, q)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, leaderboardBody{
		Data: leaderboardData{
			Rankings:           board.Rankings,
			CurrentUserRanking: board.CurrentUserRanking,
			Period:             board.Period,
		},
		Pagination: board.Pagination,
	})
}

// completionRequest is the optional body of a completion submission.
type completionRequest struct {
	Proof string `json:"proof,omitempty"`
	// UserID, when present, must match the session; completing on behalf
	// of another user is forbidden.
	UserID string `json:"user_id,omitempty"`
}

// RecordCompletion serves POST /quests/{questID}/completions.
func (h *Handler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session := sessionFrom(r.Context())
	questID := chi.URLParam(r, "questID")
	if questID == "" {
		h.writeError(w, domain.E(domain.KindValidation, "quest id is required"))
		return
	}

	var req completionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, domain.E(domain.KindValidation, "malformed request body"))
			return
		}
	}
	if req.UserID != "" && req.UserID != session.UserID {
		h.writeError(w, domain.E(domain.KindForbidden, "cannot record a completion for another user"))
		return
	}

	completion, err := h.recorder.RecordCompletion(ctx, session.UserID, questID, req.Proof)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.hub.NotifyCompletion(completion)
	h.writeJSON(w, http.StatusCreated, completion)
}

// reviewRequest is the body of a moderation verdict.
type reviewRequest struct {
	Verdict string `json:"verdict"`
}

// ReviewCompletion serves POST /quests/{questID}/completions/{userID}/review.
func (h *Handler) ReviewCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session := sessionFrom(r.Context())
	questID := chi.URLParam(r, "questID")
	userID := chi.URLParam(r, "userID")
	if questID == "" || userID == "" {
		h.writeError(w, domain.E(domain.KindValidation, "quest id and user id are required"))
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.E(domain.KindValidation, "malformed request body"))
		return
	}

	completion, err := h.recorder.Review(ctx, session.UserID, userID, questID, domain.VerificationStatus(req.Verdict))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.hub.NotifyCompletion(completion)
	h.writeJSON(w, http.StatusOK, completion)
}

// ListQuests serves GET /quests — the thin catalog listing.
func (h *Handler) ListQuests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	var promoted *bool
	if p := r.URL.Query().Get("promoted"); p != "" {
		v := p == "true"
		promoted = &v
	}

	quests, err := h.recorder.ListQuests(ctx, r.URL.Query().Get("category"), promoted)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if quests == nil {
		quests = []domain.Quest{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": quests})
}
