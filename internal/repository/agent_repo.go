package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

func (r *AgentRepo) Create(ctx context.Context, a *models.Agent) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO agents (id, api_key_hash, key_prefix, wallet_address, deposit_amount, reputation_score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.APIKeyHash, a.KeyPrefix, a.WalletAddress, a.DepositAmount, a.ReputationScore, a.Status).Scan(&a.CreatedAt)
}

func (r *AgentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, api_key_hash, key_prefix, wallet_address, deposit_amount, reputation_score, status, created_at
		FROM agents WHERE id = $1
	`, id))
}

// GetByKeyHash resolves an agent from the SHA-256 digest of its API key.
func (r *AgentRepo) GetByKeyHash(ctx context.Context, keyHash string) (*models.Agent, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, api_key_hash, key_prefix, wallet_address, deposit_amount, reputation_score, status, created_at
		FROM agents WHERE api_key_hash = $1
	`, keyHash))
}

// WalletOwner returns the id of the agent holding the wallet, if any.
func (r *AgentRepo) WalletOwner(ctx context.Context, wallet string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM agents WHERE wallet_address = $1
	`, wallet).Scan(&id)
	if err == pgx.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *AgentRepo) LinkWallet(ctx context.Context, id uuid.UUID, wallet string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE agents SET wallet_address = $2 WHERE id = $1
	`, id, wallet)
	return err
}

// GetByIDForUpdate locks the agent row for update. Call within a transaction.
func (r *AgentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Agent, error) {
	return r.scanOne(tx.QueryRow(ctx, `
		SELECT id, api_key_hash, key_prefix, wallet_address, deposit_amount, reputation_score, status, created_at
		FROM agents WHERE id = $1 FOR UPDATE
	`, id))
}

// AddDeposit increments the agent's cumulative confirmed deposit.
func (r *AgentRepo) AddDeposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE agents SET deposit_amount = deposit_amount + $2 WHERE id = $1
	`, id, amount)
	return err
}

// AddReputation increments the agent's reputation score.
func (r *AgentRepo) AddReputation(ctx context.Context, tx pgx.Tx, id uuid.UUID, points int) error {
	_, err := tx.Exec(ctx, `
		UPDATE agents SET reputation_score = reputation_score + $2 WHERE id = $1
	`, id, points)
	return err
}

// Slash zeroes the agent's deposit and bans it. Irreversible.
func (r *AgentRepo) Slash(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE agents SET deposit_amount = 0, status = $2 WHERE id = $1
	`, id, models.AgentStatusBanned)
	return err
}

type LeaderboardEntry struct {
	ID                uuid.UUID  `json:"id"`
	WalletAddress     *string    `json:"wallet_address,omitempty"`
	ReputationScore   int        `json:"reputation_score"`
	ContributionCount int        `json:"contribution_count"`
	LastContribution  *time.Time `json:"last_contribution,omitempty"`
}

// Leaderboard lists active agents by reputation, then contribution count.
func (r *AgentRepo) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.wallet_address, a.reputation_score,
		       COUNT(c.id) AS contribution_count,
		       MAX(c.created_at) AS last_contribution
		FROM agents a
		LEFT JOIN contributions c ON c.agent_id = a.id
		WHERE a.status = $1
		GROUP BY a.id
		ORDER BY a.reputation_score DESC, contribution_count DESC
		LIMIT $2
	`, models.AgentStatusActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.WalletAddress, &e.ReputationScore, &e.ContributionCount, &e.LastContribution); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *AgentRepo) scanOne(row pgx.Row) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.APIKeyHash, &a.KeyPrefix, &a.WalletAddress, &a.DepositAmount, &a.ReputationScore, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
