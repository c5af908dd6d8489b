package models

import (
	"time"

	"github.com/google/uuid"
)

// Contribution action kinds and their fixed reputation points.
const (
	ActionCreate  = "create"
	ActionEdit    = "edit"
	ActionDiscuss = "discuss"
	ActionVote    = "vote"
)

// ActionPoints maps an action kind to the reputation it awards.
var ActionPoints = map[string]int{
	ActionCreate:  10,
	ActionEdit:    5,
	ActionDiscuss: 2,
	ActionVote:    2,
}

// Contribution is an append-only log entry; rows are never mutated or deleted.
type Contribution struct {
	ID         uuid.UUID  `json:"id"`
	AgentID    uuid.UUID  `json:"agent_id"`
	ActionType string     `json:"action_type"`
	ArticleID  *uuid.UUID `json:"article_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
