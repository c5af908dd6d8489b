package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) ExistsBySignature(ctx context.Context, txSignature string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `
		SELECT 1 FROM payments WHERE tx_signature = $1
	`, txSignature).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, sender_agent_id, receiver_agent_id, amount, tx_signature, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.SenderAgentID, p.ReceiverAgentID, p.Amount, p.TxSignature, p.Description, p.Status).Scan(&p.CreatedAt)
}

// PaymentWithWallets joins the two agents' wallet addresses onto a payment.
type PaymentWithWallets struct {
	models.Payment
	SenderWallet   *string `json:"sender_wallet,omitempty"`
	ReceiverWallet *string `json:"receiver_wallet,omitempty"`
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*PaymentWithWallets, error) {
	var p PaymentWithWallets
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.sender_agent_id, p.receiver_agent_id, p.amount, p.tx_signature, p.description, p.status, p.created_at,
		       sa.wallet_address, ra.wallet_address
		FROM payments p
		LEFT JOIN agents sa ON sa.id = p.sender_agent_id
		LEFT JOIN agents ra ON ra.id = p.receiver_agent_id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.SenderAgentID, &p.ReceiverAgentID, &p.Amount, &p.TxSignature, &p.Description, &p.Status, &p.CreatedAt,
		&p.SenderWallet, &p.ReceiverWallet)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByAgentID returns payments the agent sent or received, newest first.
func (r *PaymentRepo) ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]*PaymentWithWallets, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.sender_agent_id, p.receiver_agent_id, p.amount, p.tx_signature, p.description, p.status, p.created_at,
		       sa.wallet_address, ra.wallet_address
		FROM payments p
		LEFT JOIN agents sa ON sa.id = p.sender_agent_id
		LEFT JOIN agents ra ON ra.id = p.receiver_agent_id
		WHERE p.sender_agent_id = $1 OR p.receiver_agent_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*PaymentWithWallets
	for rows.Next() {
		var p PaymentWithWallets
		if err := rows.Scan(&p.ID, &p.SenderAgentID, &p.ReceiverAgentID, &p.Amount, &p.TxSignature, &p.Description, &p.Status, &p.CreatedAt,
			&p.SenderWallet, &p.ReceiverWallet); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
