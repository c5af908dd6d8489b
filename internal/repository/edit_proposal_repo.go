package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type EditProposalRepo struct {
	pool *pgxpool.Pool
}

func NewEditProposalRepo(pool *pgxpool.Pool) *EditProposalRepo {
	return &EditProposalRepo{pool: pool}
}

func (r *EditProposalRepo) Create(ctx context.Context, p *models.EditProposal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO edit_proposals (id, article_id, proposer_agent_id, original_content, proposed_content, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.ArticleID, p.ProposerAgentID, p.OriginalContent, p.ProposedContent, p.Reason, p.Status).Scan(&p.CreatedAt)
}

func (r *EditProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EditProposal, error) {
	return scanEditProposal(r.pool.QueryRow(ctx, `
		SELECT id, article_id, proposer_agent_id, original_content, proposed_content, reason, status, created_at
		FROM edit_proposals WHERE id = $1
	`, id))
}

func (r *EditProposalRepo) List(ctx context.Context) ([]*models.EditProposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, article_id, proposer_agent_id, original_content, proposed_content, reason, status, created_at
		FROM edit_proposals ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EditProposal
	for rows.Next() {
		p, err := scanEditProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// GetForUpdate locks the proposal row so the vote transaction is the single
// writer deciding the threshold.
func (r *EditProposalRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.EditProposal, error) {
	return scanEditProposal(tx.QueryRow(ctx, `
		SELECT id, article_id, proposer_agent_id, original_content, proposed_content, reason, status, created_at
		FROM edit_proposals WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *EditProposalRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE edit_proposals SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *EditProposalRepo) HasVote(ctx context.Context, tx pgx.Tx, proposalID, voterID uuid.UUID) (bool, error) {
	var one int
	err := tx.QueryRow(ctx, `
		SELECT 1 FROM votes WHERE edit_proposal_id = $1 AND voter_agent_id = $2
	`, proposalID, voterID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *EditProposalRepo) InsertVote(ctx context.Context, tx pgx.Tx, v *models.Vote) error {
	return tx.QueryRow(ctx, `
		INSERT INTO votes (id, edit_proposal_id, voter_agent_id, vote_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, v.ID, v.ProposalID, v.VoterAgentID, v.VoteType).Scan(&v.CreatedAt)
}

// Tally recounts the proposal's votes from its rows; no cached counters.
func (r *EditProposalRepo) Tally(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (approvals, rejections int, err error) {
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE vote_type = $2),
		       COUNT(*) FILTER (WHERE vote_type = $3)
		FROM votes WHERE edit_proposal_id = $1
	`, proposalID, models.VoteApprove, models.VoteReject).Scan(&approvals, &rejections)
	return approvals, rejections, err
}

func scanEditProposal(row pgx.Row) (*models.EditProposal, error) {
	var p models.EditProposal
	err := row.Scan(&p.ID, &p.ArticleID, &p.ProposerAgentID, &p.OriginalContent, &p.ProposedContent, &p.Reason, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
