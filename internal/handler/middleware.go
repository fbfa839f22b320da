package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/redis"
)

// SessionResolver turns a bearer token into a session. Implemented by the
// Redis session store in production and by fakes in tests.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*redis.Session, error)
}

type sessionContextKey struct{}

// sessionFrom returns the session attached to the request, if any.
func sessionFrom(ctx context.Context) *redis.Session {
	s, _ := ctx.Value(sessionContextKey{}).(*redis.Session)
	return s
}

// withSession attaches the caller's session to the request context when a
// valid bearer token is present. An absent token passes through as an
// anonymous request; an invalid one is rejected so callers never act under
// a half-resolved identity.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.writeError(w, domain.E(domain.KindUnauthorized, "malformed authorization header"))
			return
		}

		session, err := h.sessions.Resolve(r.Context(), token)
		if err != nil {
			h.writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession rejects anonymous requests.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r.Context()) == nil {
			h.writeError(w, domain.E(domain.KindUnauthorized, "authentication required"))
			return
		}
		next(w, r)
	}
}

// requireModerator rejects requests without a moderator session.
func (h *Handler) requireModerator(next http.HandlerFunc) http.HandlerFunc {
	return h.requireSession(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r.Context()).Moderator {
			h.writeError(w, domain.E(domain.KindForbidden, "moderator access required"))
			return
		}
		next(w, r)
	})
}
