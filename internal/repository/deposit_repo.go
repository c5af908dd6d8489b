package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// ExistsBySignature reports whether a transaction signature was already
// recorded. The schema-level unique constraint is the race backstop.
func (r *DepositRepo) ExistsBySignature(ctx context.Context, txSignature string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `
		SELECT 1 FROM deposits WHERE tx_signature = $1
	`, txSignature).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a deposit inside the given transaction.
func (r *DepositRepo) CreateTx(ctx context.Context, tx pgx.Tx, d *models.Deposit) error {
	return tx.QueryRow(ctx, `
		INSERT INTO deposits (id, agent_id, wallet_address, amount, tx_signature, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, d.ID, d.AgentID, d.WalletAddress, d.Amount, d.TxSignature, d.Status).Scan(&d.CreatedAt)
}

func (r *DepositRepo) ListByAgentID(ctx context.Context, agentID uuid.UUID) ([]*models.Deposit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_id, wallet_address, amount, tx_signature, status, created_at
		FROM deposits WHERE agent_id = $1 ORDER BY created_at DESC
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.AgentID, &d.WalletAddress, &d.Amount, &d.TxSignature, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

type DepositTotals struct {
	TotalAmount      float64 `json:"total_deposits_sol"`
	DepositCount     int     `json:"deposit_count"`
	UniqueDepositors int     `json:"unique_depositors"`
}

// ConfirmedTotals aggregates confirmed deposits for the treasury view.
func (r *DepositRepo) ConfirmedTotals(ctx context.Context) (*DepositTotals, error) {
	var t DepositTotals
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*), COUNT(DISTINCT agent_id)
		FROM deposits WHERE status = $1
	`, models.DepositStatusConfirmed).Scan(&t.TotalAmount, &t.DepositCount, &t.UniqueDepositors)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
