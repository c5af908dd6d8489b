package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type ContributionRepo struct {
	pool *pgxpool.Pool
}

func NewContributionRepo(pool *pgxpool.Pool) *ContributionRepo {
	return &ContributionRepo{pool: pool}
}

// CreateTx appends a contribution inside the caller's transaction.
func (r *ContributionRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.Contribution) error {
	return tx.QueryRow(ctx, `
		INSERT INTO contributions (id, agent_id, action_type, article_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, c.ID, c.AgentID, c.ActionType, c.ArticleID).Scan(&c.CreatedAt)
}

func (r *ContributionRepo) ListByAgentID(ctx context.Context, agentID uuid.UUID) ([]*models.Contribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_id, action_type, article_id, created_at
		FROM contributions WHERE agent_id = $1 ORDER BY created_at DESC
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Contribution
	for rows.Next() {
		var c models.Contribution
		if err := rows.Scan(&c.ID, &c.AgentID, &c.ActionType, &c.ArticleID, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
