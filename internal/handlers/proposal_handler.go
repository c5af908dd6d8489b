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

// EditProposalRepoForHandler is the subset of edit proposal repository
// needed here.
type EditProposalRepoForHandler interface {
	Create(ctx context.Context, p *models.EditProposal) error
	List(ctx context.Context) ([]*models.EditProposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EditProposal, error)
}

// ArticleReader fetches the current article for the content snapshot.
type ArticleReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
}

// EditVoter casts a vote through the voting engine.
type EditVoter interface {
	VoteEdit(ctx context.Context, proposalID, voterID uuid.UUID, voteType string) (*services.VoteResult, error)
}

// ProposalHandler serves /api/v1/proposals endpoints (the edit lane).
type ProposalHandler struct {
	Pool      services.TxBeginner
	Proposals EditProposalRepoForHandler
	Articles  ArticleReader
	Voting    EditVoter
	Contrib   Contributor
	Events    events.Publisher
	Logger    *slog.Logger
}

// List handles GET /api/v1/proposals. Public.
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.Proposals.List(r.Context())
	if err != nil {
		h.Logger.Error("list proposals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get proposals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

// Get handles GET /api/v1/proposals/{id}. Public.
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/v1/proposals/")
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
		h.Logger.Error("get proposal", "proposal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposal": proposal})
}

type createProposalRequest struct {
	ArticleID       string  `json:"article_id"`
	ProposedContent string  `json:"proposed_content"`
	Reason          *string `json:"reason"`
}

// Create handles POST /api/v1/proposals. Deposit-gated. Snapshots the
// article's current content so reviewers can diff against what the
// proposer saw.
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	articleID, err := uuid.Parse(req.ArticleID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid article_id")
		return
	}
	if req.ProposedContent == "" {
		writeError(w, http.StatusBadRequest, "proposed_content is required")
		return
	}

	article, err := h.Articles.GetByID(r.Context(), articleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		h.Logger.Error("get article", "article_id", articleID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	proposal := &models.EditProposal{
		ID:              uuid.New(),
		ArticleID:       articleID,
		ProposerAgentID: agent.ID,
		OriginalContent: article.Content,
		ProposedContent: req.ProposedContent,
		Reason:          req.Reason,
		Status:          models.ProposalStatusPending,
	}
	if err := h.Proposals.Create(r.Context(), proposal); err != nil {
		h.Logger.Error("create proposal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create proposal")
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Logger.Error("begin tx", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(r.Context())

	if err := h.Contrib.Record(r.Context(), tx, agent.ID, models.ActionEdit, &articleID); err != nil {
		h.Logger.Error("record edit contribution", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.Logger.Error("commit tx", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summary := "New edit proposal"
	if req.Reason != nil && *req.Reason != "" {
		summary = *req.Reason
	}
	h.Events.Publish(events.Event{Type: "proposal:created", ID: proposal.ID.String(), Summary: summary})
	writeJSON(w, http.StatusCreated, map[string]any{"proposal": proposal})
}

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

// Vote handles POST /api/v1/proposals/{id}/vote. Auth only: the edit lane
// is deliberately not deposit-gated.
func (h *ProposalHandler) Vote(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r, "/api/v1/proposals/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	voteType, ok := decodeVote(w, r)
	if !ok {
		return
	}

	result, err := h.Voting.VoteEdit(r.Context(), id, agent.ID, voteType)
	if err != nil {
		if writeServiceError(w, err) {
			return
		}
		h.Logger.Error("vote edit proposal", "proposal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, voteResponse(result))
}

func decodeVote(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return "", false
	}
	if req.VoteType != models.VoteApprove && req.VoteType != models.VoteReject {
		writeError(w, http.StatusBadRequest, "vote_type must be approve or reject")
		return "", false
	}
	return req.VoteType, true
}

func voteResponse(result *services.VoteResult) map[string]any {
	return map[string]any{
		"vote":            result.Vote,
		"proposal_status": result.ProposalStatus,
		"approvals":       result.Approvals,
		"rejections":      result.Rejections,
	}
}
