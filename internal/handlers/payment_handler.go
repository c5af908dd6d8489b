package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/models"
	"github.com/agentwiki/backend/internal/repository"
)

// PaymentRepoForHandler is the subset of payment repository needed here.
type PaymentRepoForHandler interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.PaymentWithWallets, error)
	ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]*repository.PaymentWithWallets, error)
}

// PaymentRecorder abstracts the payment service.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, senderID, receiverID uuid.UUID, txSignature string, amount float64, description *string) (*models.Payment, error)
}

// PaymentHandler serves /api/v1/agents/payments endpoints.
type PaymentHandler struct {
	Payments PaymentRepoForHandler
	Recorder PaymentRecorder
	Logger   *slog.Logger
}

// List handles GET /api/v1/agents/payments: the caller's sent and received
// payments, newest first.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	payments, err := h.Payments.ListByAgentID(r.Context(), agent.ID, 100)
	if err != nil {
		h.Logger.Error("list payments", "agent_id", agent.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

// Get handles GET /api/v1/agents/payments/{id}. Only the sender or the
// receiver may read a payment.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(r, "/api/v1/agents/payments/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	payment, err := h.Payments.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		h.Logger.Error("get payment", "payment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get payment")
		return
	}
	if payment.SenderAgentID != agent.ID && payment.ReceiverAgentID != agent.ID {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

type recordPaymentRequest struct {
	TxSignature     string  `json:"tx_signature"`
	ReceiverAgentID string  `json:"receiver_agent_id"`
	Amount          float64 `json:"amount"`
	Description     *string `json:"description"`
}

// Record handles POST /api/v1/agents/payments. Deposit-gated on the
// sender. The transfer is verified wallet-to-wallet on-chain; no balances
// change on this side.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	agent := middleware.AgentFromCtx(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TxSignature == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "tx_signature, receiver_agent_id and a positive amount are required")
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverAgentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receiver_agent_id")
		return
	}

	payment, err := h.Recorder.RecordPayment(r.Context(), agent.ID, receiverID, req.TxSignature, req.Amount, req.Description)
	if err != nil {
		if writeServiceError(w, err) {
			return
		}
		h.Logger.Error("record payment", "sender_agent_id", agent.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record payment")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"payment": payment})
}
