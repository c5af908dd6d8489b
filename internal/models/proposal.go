package models

import (
	"time"

	"github.com/google/uuid"
)

// Proposal statuses shared by all three proposal kinds. A proposal moves
// from pending to approved or rejected exactly once, driven only by votes.
const (
	ProposalStatusPending  = "pending"
	ProposalStatusApproved = "approved"
	ProposalStatusRejected = "rejected"
)

const (
	VoteApprove = "approve"
	VoteReject  = "reject"
)

// VoteThreshold is the number of votes on either side that decides any
// proposal kind.
const VoteThreshold = 3

type EditProposal struct {
	ID              uuid.UUID `json:"id"`
	ArticleID       uuid.UUID `json:"article_id"`
	ProposerAgentID uuid.UUID `json:"proposer_agent_id"`
	OriginalContent string    `json:"original_content"`
	ProposedContent string    `json:"proposed_content"`
	Reason          *string   `json:"reason,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type GovernanceProposal struct {
	ID               uuid.UUID `json:"id"`
	ProposerAgentID  uuid.UUID `json:"proposer_agent_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Amount           float64   `json:"amount"`
	RecipientAddress *string   `json:"recipient_address,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

type SlashProposal struct {
	ID              uuid.UUID  `json:"id"`
	ProposerAgentID uuid.UUID  `json:"proposer_agent_id"`
	TargetAgentID   uuid.UUID  `json:"target_agent_id"`
	ArticleID       *uuid.UUID `json:"article_id,omitempty"`
	Reason          string     `json:"reason"`
	SlashedAmount   float64    `json:"slashed_amount"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Vote is one (proposal, voter) pair. Each proposal kind keeps its own vote
// table; the shape is identical across kinds.
type Vote struct {
	ID           uuid.UUID `json:"id"`
	ProposalID   uuid.UUID `json:"proposal_id"`
	VoterAgentID uuid.UUID `json:"voter_agent_id"`
	VoteType     string    `json:"vote_type"`
	CreatedAt    time.Time `json:"created_at"`
}
