package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type SlashRepo struct {
	pool *pgxpool.Pool
}

func NewSlashRepo(pool *pgxpool.Pool) *SlashRepo {
	return &SlashRepo{pool: pool}
}

func (r *SlashRepo) Create(ctx context.Context, p *models.SlashProposal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO slash_proposals (id, proposer_agent_id, target_agent_id, article_id, reason, slashed_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.ProposerAgentID, p.TargetAgentID, p.ArticleID, p.Reason, p.SlashedAmount, p.Status).Scan(&p.CreatedAt)
}

func (r *SlashRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SlashProposal, error) {
	return scanSlashProposal(r.pool.QueryRow(ctx, `
		SELECT id, proposer_agent_id, target_agent_id, article_id, reason, slashed_amount, status, created_at
		FROM slash_proposals WHERE id = $1
	`, id))
}

func (r *SlashRepo) List(ctx context.Context, limit int) ([]*models.SlashProposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, proposer_agent_id, target_agent_id, article_id, reason, slashed_amount, status, created_at
		FROM slash_proposals ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SlashProposal
	for rows.Next() {
		p, err := scanSlashProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// HasPendingForTarget enforces the one-pending-slash-per-target invariant.
func (r *SlashRepo) HasPendingForTarget(ctx context.Context, targetAgentID uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `
		SELECT 1 FROM slash_proposals WHERE target_agent_id = $1 AND status = $2
	`, targetAgentID, models.ProposalStatusPending).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SlashRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.SlashProposal, error) {
	return scanSlashProposal(tx.QueryRow(ctx, `
		SELECT id, proposer_agent_id, target_agent_id, article_id, reason, slashed_amount, status, created_at
		FROM slash_proposals WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *SlashRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE slash_proposals SET status = $2 WHERE id = $1`, id, status)
	return err
}

// MarkExecuted records the confiscated amount together with the approved
// status, as one statement inside the slash transaction.
func (r *SlashRepo) MarkExecuted(ctx context.Context, tx pgx.Tx, id uuid.UUID, slashedAmount float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE slash_proposals SET status = $2, slashed_amount = $3 WHERE id = $1
	`, id, models.ProposalStatusApproved, slashedAmount)
	return err
}

func (r *SlashRepo) HasVote(ctx context.Context, tx pgx.Tx, proposalID, voterID uuid.UUID) (bool, error) {
	var one int
	err := tx.QueryRow(ctx, `
		SELECT 1 FROM slash_votes WHERE proposal_id = $1 AND voter_agent_id = $2
	`, proposalID, voterID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SlashRepo) InsertVote(ctx context.Context, tx pgx.Tx, v *models.Vote) error {
	return tx.QueryRow(ctx, `
		INSERT INTO slash_votes (id, proposal_id, voter_agent_id, vote_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, v.ID, v.ProposalID, v.VoterAgentID, v.VoteType).Scan(&v.CreatedAt)
}

func (r *SlashRepo) Tally(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (approvals, rejections int, err error) {
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE vote_type = $2),
		       COUNT(*) FILTER (WHERE vote_type = $3)
		FROM slash_votes WHERE proposal_id = $1
	`, proposalID, models.VoteApprove, models.VoteReject).Scan(&approvals, &rejections)
	return approvals, rejections, err
}

func scanSlashProposal(row pgx.Row) (*models.SlashProposal, error) {
	var p models.SlashProposal
	err := row.Scan(&p.ID, &p.ProposerAgentID, &p.TargetAgentID, &p.ArticleID, &p.Reason, &p.SlashedAmount, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
