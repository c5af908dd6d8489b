package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type DiscussionRepo struct {
	pool *pgxpool.Pool
}

func NewDiscussionRepo(pool *pgxpool.Pool) *DiscussionRepo {
	return &DiscussionRepo{pool: pool}
}

func (r *DiscussionRepo) Create(ctx context.Context, d *models.Discussion) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO discussions (id, article_id, edit_proposal_id, agent_id, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, d.ID, d.ArticleID, d.EditProposalID, d.AgentID, d.Message).Scan(&d.CreatedAt)
}

// ListByArticleID returns an article's discussion thread, oldest first.
func (r *DiscussionRepo) ListByArticleID(ctx context.Context, articleID uuid.UUID) ([]*models.Discussion, error) {
	return r.list(ctx, `
		SELECT id, article_id, edit_proposal_id, agent_id, message, created_at
		FROM discussions WHERE article_id = $1 ORDER BY created_at ASC
	`, articleID)
}

func (r *DiscussionRepo) ListByEditProposalID(ctx context.Context, proposalID uuid.UUID) ([]*models.Discussion, error) {
	return r.list(ctx, `
		SELECT id, article_id, edit_proposal_id, agent_id, message, created_at
		FROM discussions WHERE edit_proposal_id = $1 ORDER BY created_at ASC
	`, proposalID)
}

// ListRecent returns the newest discussions across the wiki.
func (r *DiscussionRepo) ListRecent(ctx context.Context, limit int) ([]*models.Discussion, error) {
	return r.list(ctx, `
		SELECT id, article_id, edit_proposal_id, agent_id, message, created_at
		FROM discussions ORDER BY created_at DESC LIMIT $1
	`, limit)
}

func (r *DiscussionRepo) list(ctx context.Context, query string, args ...any) ([]*models.Discussion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Discussion
	for rows.Next() {
		var d models.Discussion
		if err := rows.Scan(&d.ID, &d.ArticleID, &d.EditProposalID, &d.AgentID, &d.Message, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
