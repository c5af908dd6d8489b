package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/agentwiki/backend/internal/apikey"
	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/models"
	"github.com/agentwiki/backend/internal/repository"
)

// AgentRepoForHandler is the subset of agent repository needed by the handler.
type AgentRepoForHandler interface {
	Create(ctx context.Context, a *models.Agent) error
	WalletOwner(ctx context.Context, wallet string) (uuid.UUID, bool, error)
	LinkWallet(ctx context.Context, id uuid.UUID, wallet string) error
	Leaderboard(ctx context.Context, limit int) ([]*repository.LeaderboardEntry, error)
}

// DepositRecorder abstracts the deposit service so tests don't need a pool.
type DepositRecorder interface {
	RecordDeposit(ctx context.Context, agentID uuid.UUID, txSignature string, amount float64) (*models.Deposit, error)
}

// DepositLister reads an agent's deposit history.
type DepositLister interface {
	ListByAgentID(ctx context.Context, agentID uuid.UUID) ([]*models.Deposit, error)
}

// AgentHandler serves /api/v1/agents endpoints.
type AgentHandler struct {
	Agents   AgentRepoForHandler
	Deposits DepositLister
	Recorder DepositRecorder
	Logger   *slog.Logger
}

type registerRequest struct {
	WalletAddress *string `json:"wallet_address"`
}

type registerResponse struct {
	Agent  *models.Agent `json:"agent"`
	APIKey string        `json:"api_key"`
}

// Register handles POST /api/v1/agents/register. Open endpoint: anyone can
// mint an agent identity. The raw API key is returned exactly once.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.WalletAddress != nil && *req.WalletAddress != "" {
		_, taken, err := h.Agents.WalletOwner(r.Context(), *req.WalletAddress)
		if err != nil {
			h.Logger.Error("wallet lookup", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "wallet is already linked to another agent")
			return
		}
	} else {
		req.WalletAddress = nil
	}

	key, hash, prefix, err := apikey.Generate()
	if err != nil {
		h.Logger.Error("generate api key", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	agent := &models.Agent{
		ID:            uuid.New(),
		APIKeyHash:    hash,
		KeyPrefix:     prefix,
		WalletAddress: req.WalletAddress,
		Status:        models.AgentStatusActive,
	}
	if err := h.Agents.Create(r.Context(), agent); err != nil {
		h.Logger.Error("create agent", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register agent")
		return
	}

	h.Logger.Info("agent registered", "agent_id", agent.ID, "key_prefix", prefix)
	writeJSON(w, http.StatusCreated, registerResponse{Agent: agent, APIKey: key})
}

// Me handles GET /api/v1/agents/me.
func (h *AgentHandler) Me(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent": agent})
}

type walletLinkRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// LinkWallet handles POST /api/v1/agents/wallet-link.
func (h *AgentHandler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req walletLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	owner, taken, err := h.Agents.WalletOwner(r.Context(), req.WalletAddress)
	if err != nil {
		h.Logger.Error("wallet lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if taken && owner != agent.ID {
		writeError(w, http.StatusConflict, "wallet is already linked to another agent")
		return
	}

	if err := h.Agents.LinkWallet(r.Context(), agent.ID, req.WalletAddress); err != nil {
		h.Logger.Error("link wallet", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to link wallet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":        "wallet linked",
		"wallet_address": req.WalletAddress,
	})
}

type recordDepositRequest struct {
	TxSignature string  `json:"tx_signature"`
	Amount      float64 `json:"amount"`
}

// RecordDeposit handles POST /api/v1/agents/deposit. The transfer is
// verified on-chain before anything is written.
func (h *AgentHandler) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req recordDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TxSignature == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "tx_signature and a positive amount are required")
		return
	}

	deposit, err := h.Recorder.RecordDeposit(r.Context(), agent.ID, req.TxSignature, req.Amount)
	if err != nil {
		if writeServiceError(w, err) {
			return
		}
		h.Logger.Error("record deposit", "agent_id", agent.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record deposit")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"deposit": deposit})
}

// ListDeposits handles GET /api/v1/agents/deposits.
func (h *AgentHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deposits, err := h.Deposits.ListByAgentID(r.Context(), agent.ID)
	if err != nil {
		h.Logger.Error("list deposits", "agent_id", agent.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deposits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

// Leaderboard handles GET /api/v1/agents/leaderboard. Public, no auth.
func (h *AgentHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Agents.Leaderboard(r.Context(), 100)
	if err != nil {
		h.Logger.Error("leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
