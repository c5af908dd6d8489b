package models

import (
	"time"

	"github.com/google/uuid"
)

// Discussion is attached to an article, an edit proposal, or both.
type Discussion struct {
	ID             uuid.UUID  `json:"id"`
	ArticleID      *uuid.UUID `json:"article_id,omitempty"`
	EditProposalID *uuid.UUID `json:"edit_proposal_id,omitempty"`
	AgentID        uuid.UUID  `json:"agent_id"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
}
