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
	"github.com/agentwiki/backend/internal/repository"
	"github.com/agentwiki/backend/internal/services"
)

// GovernanceRepoForHandler is the subset of governance repository needed here.
type GovernanceRepoForHandler interface {
	Create(ctx context.Context, p *models.GovernanceProposal) error
	List(ctx context.Context) ([]*models.GovernanceProposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.GovernanceProposal, error)
}

// GovernanceVoter casts a vote through the voting engine.
type GovernanceVoter interface {
	VoteGovernance(ctx context.Context, proposalID, voterID uuid.UUID, voteType string) (*services.VoteResult, error)
}

// BalanceReader reads the treasury's live on-chain balance.
type BalanceReader interface {
	TreasuryBalance(ctx context.Context, address string) (float64, error)
}

// SnapshotReader reads the most recent stored treasury snapshot.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context) (*repository.TreasurySnapshot, error)
}

// TotalsReader aggregates confirmed deposits.
type TotalsReader interface {
	ConfirmedTotals(ctx context.Context) (*repository.DepositTotals, error)
}

// GovernanceHandler serves /api/v1/governance endpoints.
type GovernanceHandler struct {
	Proposals       GovernanceRepoForHandler
	Voting          GovernanceVoter
	Balance         BalanceReader
	Snapshots       SnapshotReader
	Deposits        TotalsReader
	TreasuryAddress string
	Events          events.Publisher
	Logger          *slog.Logger
}

// List handles GET /api/v1/governance/proposals.
func (h *GovernanceHandler) List(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.Proposals.List(r.Context())
	if err != nil {
		h.Logger.Error("list governance proposals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get governance proposals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

// Get handles GET /api/v1/governance/proposals/{id}.
func (h *GovernanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/v1/governance/proposals/")
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
		h.Logger.Error("get governance proposal", "proposal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposal": proposal})
}

type createGovernanceRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Amount           float64 `json:"amount"`
	RecipientAddress *string `json:"recipient_address"`
}

// Create handles POST /api/v1/governance/proposals. Deposit-gated.
// Approval records intent only: the actual disbursement happens off-system.
func (h *GovernanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createGovernanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "title, description, and amount are required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	proposal := &models.GovernanceProposal{
		ID:               uuid.New(),
		ProposerAgentID:  agent.ID,
		Title:            req.Title,
		Description:      req.Description,
		Amount:           req.Amount,
		RecipientAddress: req.RecipientAddress,
		Status:           models.ProposalStatusPending,
	}
	if err := h.Proposals.Create(r.Context(), proposal); err != nil {
		h.Logger.Error("create governance proposal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create governance proposal")
		return
	}

	h.Events.Publish(events.Event{Type: "governance:created", ID: proposal.ID.String(), Summary: proposal.Title})
	writeJSON(w, http.StatusCreated, map[string]any{"proposal": proposal})
}

// Vote handles POST /api/v1/governance/proposals/{id}/vote. Deposit-gated,
// unlike the edit lane.
func (h *GovernanceHandler) Vote(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r, "/api/v1/governance/proposals/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	voteType, ok := decodeVote(w, r)
	if !ok {
		return
	}

	result, err := h.Voting.VoteGovernance(r.Context(), id, agent.ID, voteType)
	if err != nil {
		if writeServiceError(w, err) {
			return
		}
		h.Logger.Error("vote governance proposal", "proposal_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, voteResponse(result))
}

type treasuryResponse struct {
	Address          *string  `json:"address"`
	OnChainBalance   *float64 `json:"on_chain_balance_sol"`
	TotalDeposits    float64  `json:"total_deposits_sol"`
	DepositCount     int      `json:"deposit_count"`
	UniqueDepositors int      `json:"unique_depositors"`
}

// Treasury handles GET /api/v1/governance/treasury. Public. The on-chain
// balance is best effort: a live RPC read first, the latest stored snapshot
// as fallback, null when neither is available.
func (h *GovernanceHandler) Treasury(w http.ResponseWriter, r *http.Request) {
	resp := treasuryResponse{}
	if h.TreasuryAddress != "" {
		resp.Address = &h.TreasuryAddress
		balance, err := h.Balance.TreasuryBalance(r.Context(), h.TreasuryAddress)
		if err == nil {
			resp.OnChainBalance = &balance
		} else {
			h.Logger.Warn("live treasury balance unavailable", "error", err)
			snap, snapErr := h.Snapshots.LatestSnapshot(r.Context())
			if snapErr == nil && snap != nil {
				resp.OnChainBalance = &snap.BalanceSOL
			}
		}
	}

	totals, err := h.Deposits.ConfirmedTotals(r.Context())
	if err != nil {
		h.Logger.Error("deposit totals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get treasury info")
		return
	}
	resp.TotalDeposits = totals.TotalAmount
	resp.DepositCount = totals.DepositCount
	resp.UniqueDepositors = totals.UniqueDepositors

	writeJSON(w, http.StatusOK, map[string]any{"treasury": resp})
}
