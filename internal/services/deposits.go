package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TransferVerifier is the chain verifier seen by the recorders.
type TransferVerifier interface {
	VerifyTransfer(ctx context.Context, signature, expectedSender, expectedRecipient string, expectedAmount float64) error
}

// DepositStore is the subset of the deposit repository the recorder needs.
type DepositStore interface {
	ExistsBySignature(ctx context.Context, txSignature string) (bool, error)
	CreateTx(ctx context.Context, tx pgx.Tx, d *models.Deposit) error
}

// AgentDepositStore resolves agents and credits confirmed deposits.
type AgentDepositStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	AddDeposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount float64) error
}

// DepositService records verified treasury deposits. The on-chain check runs
// before the write transaction so no lock is held across the RPC round trip.
type DepositService struct {
	Pool           TxBeginner
	Deposits       DepositStore
	Agents         AgentDepositStore
	Verifier       TransferVerifier
	Events         events.Publisher
	TreasuryWallet string
	Logger         *slog.Logger
}

func NewDepositService(pool TxBeginner, deposits DepositStore, agents AgentDepositStore, verifier TransferVerifier, hub events.Publisher, treasuryWallet string, logger *slog.Logger) *DepositService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DepositService{
		Pool:           pool,
		Deposits:       deposits,
		Agents:         agents,
		Verifier:       verifier,
		Events:         hub,
		TreasuryWallet: treasuryWallet,
		Logger:         logger,
	}
}

// RecordDeposit verifies the transfer agent-wallet -> treasury and then
// atomically inserts the deposit row and increments the agent's cumulative
// deposit. Resubmitting the same signature fails with
// ErrDuplicateTransaction and never double-credits.
func (s *DepositService) RecordDeposit(ctx context.Context, agentID uuid.UUID, txSignature string, amount float64) (*models.Deposit, error) {
	agent, err := s.Agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.WalletAddress == nil {
		return nil, ErrNoWalletLinked
	}

	exists, err := s.Deposits.ExistsBySignature(ctx, txSignature)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateTransaction
	}

	if err := s.Verifier.VerifyTransfer(ctx, txSignature, *agent.WalletAddress, s.TreasuryWallet, amount); err != nil {
		return nil, err
	}

	deposit := &models.Deposit{
		ID:            uuid.New(),
		AgentID:       agentID,
		WalletAddress: *agent.WalletAddress,
		Amount:        amount,
		TxSignature:   txSignature,
		Status:        models.DepositStatusConfirmed,
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.Deposits.CreateTx(ctx, tx, deposit); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}
	if err := s.Agents.AddDeposit(ctx, tx, agentID, amount); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Logger.Info("deposit recorded", "agent_id", agentID, "amount", amount, "tx_signature", txSignature)
	s.Events.Publish(events.Event{
		Type:    "deposit:recorded",
		ID:      deposit.ID.String(),
		Summary: fmt.Sprintf("%g SOL deposit", amount),
	})
	return deposit, nil
}

// isUniqueViolation reports a Postgres unique constraint violation (23505),
// the schema-level backstop for duplicate signatures racing the precheck.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
