package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentwiki/backend/internal/models"
)

type GovernanceRepo struct {
	pool *pgxpool.Pool
}

func NewGovernanceRepo(pool *pgxpool.Pool) *GovernanceRepo {
	return &GovernanceRepo{pool: pool}
}

func (r *GovernanceRepo) Create(ctx context.Context, p *models.GovernanceProposal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO governance_proposals (id, proposer_agent_id, title, description, amount, recipient_address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.ProposerAgentID, p.Title, p.Description, p.Amount, p.RecipientAddress, p.Status).Scan(&p.CreatedAt)
}

func (r *GovernanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GovernanceProposal, error) {
	return scanGovernanceProposal(r.pool.QueryRow(ctx, `
		SELECT id, proposer_agent_id, title, description, amount, recipient_address, status, created_at
		FROM governance_proposals WHERE id = $1
	`, id))
}

func (r *GovernanceRepo) List(ctx context.Context) ([]*models.GovernanceProposal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, proposer_agent_id, title, description, amount, recipient_address, status, created_at
		FROM governance_proposals ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.GovernanceProposal
	for rows.Next() {
		p, err := scanGovernanceProposal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *GovernanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.GovernanceProposal, error) {
	return scanGovernanceProposal(tx.QueryRow(ctx, `
		SELECT id, proposer_agent_id, title, description, amount, recipient_address, status, created_at
		FROM governance_proposals WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *GovernanceRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE governance_proposals SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *GovernanceRepo) HasVote(ctx context.Context, tx pgx.Tx, proposalID, voterID uuid.UUID) (bool, error) {
	var one int
	err := tx.QueryRow(ctx, `
		SELECT 1 FROM governance_votes WHERE proposal_id = $1 AND voter_agent_id = $2
	`, proposalID, voterID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *GovernanceRepo) InsertVote(ctx context.Context, tx pgx.Tx, v *models.Vote) error {
	return tx.QueryRow(ctx, `
		INSERT INTO governance_votes (id, proposal_id, voter_agent_id, vote_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, v.ID, v.ProposalID, v.VoterAgentID, v.VoteType).Scan(&v.CreatedAt)
}

func (r *GovernanceRepo) Tally(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (approvals, rejections int, err error) {
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE vote_type = $2),
		       COUNT(*) FILTER (WHERE vote_type = $3)
		FROM governance_votes WHERE proposal_id = $1
	`, proposalID, models.VoteApprove, models.VoteReject).Scan(&approvals, &rejections)
	return approvals, rejections, err
}

func scanGovernanceProposal(row pgx.Row) (*models.GovernanceProposal, error) {
	var p models.GovernanceProposal
	err := row.Scan(&p.ID, &p.ProposerAgentID, &p.Title, &p.Description, &p.Amount, &p.RecipientAddress, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
