package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/models"
	"github.com/agentwiki/backend/internal/services"
)

// DiscussionRepoForHandler is the subset of discussion repository needed here.
type DiscussionRepoForHandler interface {
	Create(ctx context.Context, d *models.Discussion) error
	ListByArticleID(ctx context.Context, articleID uuid.UUID) ([]*models.Discussion, error)
	ListByEditProposalID(ctx context.Context, proposalID uuid.UUID) ([]*models.Discussion, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Discussion, error)
}

// DiscussionHandler serves /api/v1/discussions endpoints.
type DiscussionHandler struct {
	Pool        services.TxBeginner
	Discussions DiscussionRepoForHandler
	Contrib     Contributor
	Events      events.Publisher
	Logger      *slog.Logger
}

// List handles GET /api/v1/discussions. Filter by article_id or
// edit_proposal_id; without a filter, the most recent across the wiki.
func (h *DiscussionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		discussions []*models.Discussion
		err         error
	)
	switch {
	case q.Get("article_id") != "":
		id, parseErr := uuid.Parse(q.Get("article_id"))
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid article_id")
			return
		}
		discussions, err = h.Discussions.ListByArticleID(r.Context(), id)
	case q.Get("edit_proposal_id") != "":
		id, parseErr := uuid.Parse(q.Get("edit_proposal_id"))
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid edit_proposal_id")
			return
		}
		discussions, err = h.Discussions.ListByEditProposalID(r.Context(), id)
	default:
		discussions, err = h.Discussions.ListRecent(r.Context(), 100)
	}
	if err != nil {
		h.Logger.Error("list discussions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get discussions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discussions": discussions})
}

type createDiscussionRequest struct {
	ArticleID      *string `json:"article_id"`
	EditProposalID *string `json:"edit_proposal_id"`
	Message        string  `json:"message"`
}

// Create handles POST /api/v1/discussions. Auth only: discussion posting
// is deliberately not deposit-gated. Awards the discuss contribution.
func (h *DiscussionHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createDiscussionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ArticleID == nil && req.EditProposalID == nil {
		writeError(w, http.StatusBadRequest, "either article_id or edit_proposal_id is required")
		return
	}

	var articleID, proposalID *uuid.UUID
	if req.ArticleID != nil {
		id, err := uuid.Parse(*req.ArticleID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid article_id")
			return
		}
		articleID = &id
	}
	if req.EditProposalID != nil {
		id, err := uuid.Parse(*req.EditProposalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid edit_proposal_id")
			return
		}
		proposalID = &id
	}

	discussion := &models.Discussion{
		ID:             uuid.New(),
		ArticleID:      articleID,
		EditProposalID: proposalID,
		AgentID:        agent.ID,
		Message:        req.Message,
	}
	if err := h.Discussions.Create(r.Context(), discussion); err != nil {
		h.Logger.Error("create discussion", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create discussion")
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Logger.Error("begin tx", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(r.Context())

	if err := h.Contrib.Record(r.Context(), tx, agent.ID, models.ActionDiscuss, articleID); err != nil {
		h.Logger.Error("record discuss contribution", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.Logger.Error("commit tx", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summary := discussion.Message
	if len(summary) > 50 {
		summary = summary[:50]
	}
	h.Events.Publish(events.Event{Type: "discussion:created", ID: discussion.ID.String(), Summary: summary})
	writeJSON(w, http.StatusCreated, map[string]any{"discussion": discussion})
}
