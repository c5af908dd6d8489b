package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/models"
	"github.com/agentwiki/backend/internal/services"
)

// SlashRepoForHandler is the subset of slash repository needed here.
type SlashRepoForHandler interface {
	Create(ctx context.Context, p *models.SlashProposal) error
	List(ctx context.Context, limit int) ([]*models.SlashProposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SlashProposal, error)
	HasPendingForTarget(ctx context.Context, targetAgentID uuid.UUID) (bool, error)
}

// AgentGetter resolves the slash target.
type AgentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// ArticleChecker verifies the referenced article exists.
type ArticleChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// SlashVoter casts a vote through the voting engine.
type SlashVoter interface {
	VoteSlash(ctx context.Context, proposalID, voterID uuid.UUID, voteType string) (*services.VoteResult, error)
}

// SlashHandler serves /api/v1/slash endpoints.
type SlashHandler struct {
	Proposals SlashRepoForHandler
	Agents    AgentGetter
	Articles  ArticleChecker
	Voting    SlashVoter
	Events    events.Publisher
	Logger    *slog.Logger
}

// List handles GET /api/v1/slash/proposals.
func (h *SlashHandler) List(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.Proposals.List(r.Context(), 100)
	if err != nil {
		h.Logger.Error("list slash proposals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get slash proposals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

// Get handles GET /api/v1/slash/proposals/{id}.
func (h *SlashHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/v1/slash/proposals/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	proposal, err := h.Proposals.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		h.Logger.Error("get slash proposal", "proposal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposal": proposal})
}

type createSlashRequest struct {
	TargetAgentID string  `json:"target_agent_id"`
	ArticleID     *string `json:"article_id"`
	Reason        string  `json:"reason"`
}

// Create handles POST /api/v1/slash/proposals. Deposit-gated. One pending
// proposal per target at a time; self-reports and already banned targets
// are rejected.
func (h *SlashHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createSlashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "target_agent_id and reason are required")
		return
	}
	targetID, err := uuid.Parse(req.TargetAgentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_agent_id")
		return
	}
	if targetID == agent.ID {
		writeError(w, http.StatusBadRequest, "cannot report yourself")
		return
	}

	target, err := h.Agents.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "target agent not found")
			return
		}
		h.Logger.Error("get target agent", "target_agent_id", targetID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if target.Status != models.AgentStatusActive {
		writeError(w, http.StatusBadRequest, "target agent is already banned")
		return
	}

	pending, err := h.Proposals.HasPendingForTarget(r.Context(), targetID)
	if err != nil {
		h.Logger.Error("pending slash lookup", "target_agent_id", targetID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if pending {
		writeError(w, http.StatusConflict, "a pending slash proposal already exists for this agent")
		return
	}

	var articleID *uuid.UUID
	if req.ArticleID != nil && *req.ArticleID != "" {
		id, err := uuid.Parse(*req.ArticleID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid article_id")
			return
		}
		exists, err := h.Articles.Exists(r.Context(), id)
		if err != nil {
			h.Logger.Error("article lookup", "article_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		articleID = &id
	}

	proposal := &models.SlashProposal{
		ID:              uuid.New(),
		ProposerAgentID: agent.ID,
		TargetAgentID:   targetID,
		ArticleID:       articleID,
		Reason:          req.Reason,
		Status:          models.ProposalStatusPending,
	}
	if err := h.Proposals.Create(r.Context(), proposal); err != nil {
		h.Logger.Error("create slash proposal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create slash proposal")
		return
	}

	summary := proposal.Reason
	if len(summary) > 40 {
		summary = summary[:40]
	}
	h.Events.Publish(events.Event{Type: "slash:created", ID: proposal.ID.String(), Summary: "Report: " + summary})
	writeJSON(w, http.StatusCreated, map[string]any{"proposal": proposal})
}

// Vote handles POST /api/v1/slash/proposals/{id}/vote. Deposit-gated.
// The target can never vote on their own slash.
func (h *SlashHandler) Vote(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r, "/api/v1/slash/proposals/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	voteType, ok := decodeVote(w, r)
	if !ok {
		return
	}

	result, err := h.Voting.VoteSlash(r.Context(), id, agent.ID, voteType)
	if err != nil {
		if writeServiceError(w, err) {
			return
		}
		h.Logger.Error("vote slash proposal", "proposal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, voteResponse(result))
}
