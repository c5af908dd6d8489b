package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/models"
)

// PaymentStore is the subset of the payment repository the recorder needs.
type PaymentStore interface {
	ExistsBySignature(ctx context.Context, txSignature string) (bool, error)
	Create(ctx context.Context, p *models.Payment) error
}

// AgentLookup resolves agents for payment preconditions.
type AgentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// PaymentService records verified agent-to-agent transfers. Payments mutate
// no balance on either side and award no reputation; they are a standalone
// confirmed-transfer log.
type PaymentService struct {
	Payments PaymentStore
	Agents   AgentLookup
	Verifier TransferVerifier
	Events   events.Publisher
	Logger   *slog.Logger
}

func NewPaymentService(payments PaymentStore, agents AgentLookup, verifier TransferVerifier, hub events.Publisher, logger *slog.Logger) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{Payments: payments, Agents: agents, Verifier: verifier, Events: hub, Logger: logger}
}

func (s *PaymentService) RecordPayment(ctx context.Context, senderID, receiverID uuid.UUID, txSignature string, amount float64, description *string) (*models.Payment, error) {
	if senderID == receiverID {
		return nil, ErrSelfPayment
	}

	sender, err := s.Agents.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.WalletAddress == nil {
		return nil, ErrNoWalletLinked
	}

	receiver, err := s.Agents.GetByID(ctx, receiverID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}
	if receiver.Status != models.AgentStatusActive {
		return nil, ErrReceiverInactive
	}
	if receiver.WalletAddress == nil {
		return nil, ErrReceiverNoWallet
	}

	exists, err := s.Payments.ExistsBySignature(ctx, txSignature)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateTransaction
	}

	if err := s.Verifier.VerifyTransfer(ctx, txSignature, *sender.WalletAddress, *receiver.WalletAddress, amount); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:              uuid.New(),
		SenderAgentID:   senderID,
		ReceiverAgentID: receiverID,
		Amount:          amount,
		TxSignature:     txSignature,
		Description:     description,
		Status:          models.PaymentStatusConfirmed,
	}
	if err := s.Payments.Create(ctx, payment); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}

	s.Logger.Info("payment recorded", "sender_id", senderID, "receiver_id", receiverID, "amount", amount)
	s.Events.Publish(events.Event{
		Type:    "payment:recorded",
		ID:      payment.ID.String(),
		Summary: fmt.Sprintf("%g SOL payment", amount),
	})
	return payment, nil
}
