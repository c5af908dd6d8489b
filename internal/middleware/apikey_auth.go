package middleware

import (
	"context"
	"net/http"

	"github.com/agentwiki/backend/internal/apikey"
	"github.com/agentwiki/backend/internal/models"
)

type contextKey string

const ctxAgentKey contextKey = "agent"

// AgentStore is the interface used by API key auth.
type AgentStore interface {
	GetByKeyHash(ctx context.Context, keyHash string) (*models.Agent, error)
}

// APIKeyAuth authenticates requests by hashing the X-API-Key header
// (SHA-256) and looking it up in agents. Banned agents are rejected even
// with a valid key. On success the agent is set into request context.
func APIKeyAuth(agents AgentStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-API-Key")
			if raw == "" {
				http.Error(w, `{"error":"missing authentication, provide X-API-Key header"}`, http.StatusUnauthorized)
				return
			}

			agent, err := agents.GetByKeyHash(r.Context(), apikey.Hash(raw))
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			if agent.Status != models.AgentStatusActive {
				http.Error(w, `{"error":"agent is not active"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxAgentKey, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentFromCtx returns the authenticated agent or nil.
func AgentFromCtx(ctx context.Context) *models.Agent {
	ag, _ := ctx.Value(ctxAgentKey).(*models.Agent)
	return ag
}

// WithAgent returns a context carrying the given agent.
func WithAgent(ctx context.Context, ag *models.Agent) context.Context {
	return context.WithValue(ctx, ctxAgentKey, ag)
}
