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

// voteTables is the vote-side contract shared by all three proposal kinds:
// per-voter uniqueness, insertion, a fresh tally, and the status flip.
type voteTables interface {
	HasVote(ctx context.Context, tx pgx.Tx, proposalID, voterID uuid.UUID) (bool, error)
	InsertVote(ctx context.Context, tx pgx.Tx, v *models.Vote) error
	Tally(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (approvals, rejections int, err error)
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

type EditProposalStore interface {
	voteTables
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.EditProposal, error)
}

type GovernanceProposalStore interface {
	voteTables
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.GovernanceProposal, error)
}

type SlashProposalStore interface {
	voteTables
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.SlashProposal, error)
	MarkExecuted(ctx context.Context, tx pgx.Tx, id uuid.UUID, slashedAmount float64) error
}

// ArticleEditor applies an approved edit inside the vote transaction.
type ArticleEditor interface {
	ApplyEdit(ctx context.Context, tx pgx.Tx, id uuid.UUID, content string) error
}

// SlashTargetStore locks and slashes the target agent of an approved slash
// proposal.
type SlashTargetStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Agent, error)
	Slash(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// Contributor records the voter's +2 contribution in the vote transaction.
type Contributor interface {
	Record(ctx context.Context, tx pgx.Tx, agentID uuid.UUID, action string, articleID *uuid.UUID) error
}

// VoteResult reports the vote cast and the proposal state it produced.
type VoteResult struct {
	Vote           *models.Vote `json:"vote"`
	ProposalStatus string       `json:"proposal_status"`
	Approvals      int          `json:"approvals"`
	Rejections     int          `json:"rejections"`
}

// VotingService is the threshold-voting state machine for edit, governance
// and slash proposals. Every cast runs in a single row-locking transaction,
// so the side that crosses the threshold first is decided by transaction
// serialization, not request arrival order.
type VotingService struct {
	Pool       TxBeginner
	Edits      EditProposalStore
	Governance GovernanceProposalStore
	Slashes    SlashProposalStore
	Articles   ArticleEditor
	Agents     SlashTargetStore
	Contrib    Contributor
	Events     events.Publisher
	Logger     *slog.Logger
}

func NewVotingService(pool TxBeginner, edits EditProposalStore, governance GovernanceProposalStore, slashes SlashProposalStore, articles ArticleEditor, agents SlashTargetStore, contrib Contributor, hub events.Publisher, logger *slog.Logger) *VotingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VotingService{
		Pool:       pool,
		Edits:      edits,
		Governance: governance,
		Slashes:    slashes,
		Articles:   articles,
		Agents:     agents,
		Contrib:    contrib,
		Events:     hub,
		Logger:     logger,
	}
}

// VoteEdit casts a vote on an edit proposal. On the third approval the
// proposed content is applied to the article and its version is bumped by
// one; on the third rejection the article is untouched.
func (s *VotingService) VoteEdit(ctx context.Context, proposalID, voterID uuid.UUID, voteType string) (*VoteResult, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	proposal, err := s.Edits.GetForUpdate(ctx, tx, proposalID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, ErrAlreadyDecided
	}

	result, err := s.recordVote(ctx, tx, s.Edits, proposalID, voterID, voteType)
	if err != nil {
		return nil, err
	}

	switch result.ProposalStatus {
	case models.ProposalStatusApproved:
		if err := s.Edits.SetStatus(ctx, tx, proposalID, models.ProposalStatusApproved); err != nil {
			return nil, err
		}
		if err := s.Articles.ApplyEdit(ctx, tx, proposal.ArticleID, proposal.ProposedContent); err != nil {
			return nil, err
		}
	case models.ProposalStatusRejected:
		if err := s.Edits.SetStatus(ctx, tx, proposalID, models.ProposalStatusRejected); err != nil {
			return nil, err
		}
	}

	if err := s.Contrib.Record(ctx, tx, voterID, models.ActionVote, &proposal.ArticleID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishVote("proposal", proposalID, voteType, result.ProposalStatus)
	if result.ProposalStatus == models.ProposalStatusApproved {
		s.Events.Publish(events.Event{
			Type:    "article:updated",
			ID:      proposal.ArticleID.String(),
			Summary: "Edit proposal approved",
		})
	}
	return result, nil
}

// VoteGovernance casts a vote on a governance proposal. A decision flips the
// status only; fund disbursement happens off-system.
func (s *VotingService) VoteGovernance(ctx context.Context, proposalID, voterID uuid.UUID, voteType string) (*VoteResult, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	proposal, err := s.Governance.GetForUpdate(ctx, tx, proposalID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, ErrAlreadyDecided
	}

	result, err := s.recordVote(ctx, tx, s.Governance, proposalID, voterID, voteType)
	if err != nil {
		return nil, err
	}
	if result.ProposalStatus != models.ProposalStatusPending {
		if err := s.Governance.SetStatus(ctx, tx, proposalID, result.ProposalStatus); err != nil {
			return nil, err
		}
	}

	if err := s.Contrib.Record(ctx, tx, voterID, models.ActionVote, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishVote("governance", proposalID, voteType, result.ProposalStatus)
	if result.ProposalStatus == models.ProposalStatusApproved {
		s.Events.Publish(events.Event{
			Type:    "governance:executed",
			ID:      proposalID.String(),
			Summary: proposal.Title,
		})
	}
	return result, nil
}

// VoteSlash casts a vote on a slash proposal. The target agent may not vote
// on its own slash. The third approval confiscates the target's deposit and
// bans it in the same transaction; the slashed amount recorded on the
// proposal is the deposit read under lock immediately before zeroing.
func (s *VotingService) VoteSlash(ctx context.Context, proposalID, voterID uuid.UUID, voteType string) (*VoteResult, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	proposal, err := s.Slashes.GetForUpdate(ctx, tx, proposalID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, ErrAlreadyDecided
	}
	if voterID == proposal.TargetAgentID {
		return nil, ErrSelfVoteForbidden
	}

	result, err := s.recordVote(ctx, tx, s.Slashes, proposalID, voterID, voteType)
	if err != nil {
		return nil, err
	}

	var slashedAmount float64
	switch result.ProposalStatus {
	case models.ProposalStatusApproved:
		target, err := s.Agents.GetByIDForUpdate(ctx, tx, proposal.TargetAgentID)
		if err != nil {
			return nil, err
		}
		slashedAmount = target.DepositAmount
		if err := s.Slashes.MarkExecuted(ctx, tx, proposalID, slashedAmount); err != nil {
			return nil, err
		}
		if err := s.Agents.Slash(ctx, tx, proposal.TargetAgentID); err != nil {
			return nil, err
		}
	case models.ProposalStatusRejected:
		if err := s.Slashes.SetStatus(ctx, tx, proposalID, models.ProposalStatusRejected); err != nil {
			return nil, err
		}
	}

	if err := s.Contrib.Record(ctx, tx, voterID, models.ActionVote, proposal.ArticleID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishVote("slash", proposalID, voteType, result.ProposalStatus)
	if result.ProposalStatus == models.ProposalStatusApproved {
		s.Logger.Info("slash executed", "proposal_id", proposalID, "target_agent_id", proposal.TargetAgentID, "slashed_amount", slashedAmount)
		s.Events.Publish(events.Event{
			Type:    "slash:executed",
			ID:      proposalID.String(),
			Summary: fmt.Sprintf("Agent slashed: %g SOL confiscated", slashedAmount),
		})
	}
	return result, nil
}

// recordVote runs the kind-independent core: duplicate check, insert, fresh
// tally, and the first-to-three decision. It does not flip the proposal
// status; the caller applies the kind-specific effect.
func (s *VotingService) recordVote(ctx context.Context, tx pgx.Tx, t voteTables, proposalID, voterID uuid.UUID, voteType string) (*VoteResult, error) {
	voted, err := t.HasVote(ctx, tx, proposalID, voterID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrDuplicateVote
	}

	vote := &models.Vote{
		ID:           uuid.New(),
		ProposalID:   proposalID,
		VoterAgentID: voterID,
		VoteType:     voteType,
	}
	if err := t.InsertVote(ctx, tx, vote); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateVote
		}
		return nil, err
	}

	approvals, rejections, err := t.Tally(ctx, tx, proposalID)
	if err != nil {
		return nil, err
	}

	status := models.ProposalStatusPending
	if approvals >= models.VoteThreshold {
		status = models.ProposalStatusApproved
	} else if rejections >= models.VoteThreshold {
		status = models.ProposalStatusRejected
	}

	return &VoteResult{
		Vote:           vote,
		ProposalStatus: status,
		Approvals:      approvals,
		Rejections:     rejections,
	}, nil
}

func (s *VotingService) publishVote(kind string, proposalID uuid.UUID, voteType, status string) {
	s.Events.Publish(events.Event{
		Type:    kind + ":voted",
		ID:      proposalID.String(),
		Summary: fmt.Sprintf("Vote: %s (%s)", voteType, status),
	})
}
