package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent lifecycle statuses. The active -> banned transition is one-way:
// a slashed agent is never reinstated.
const (
	AgentStatusActive = "active"
	AgentStatusBanned = "banned"
)

type Agent struct {
	ID              uuid.UUID `json:"id"`
	APIKeyHash      string    `json:"-"`
	KeyPrefix       string    `json:"key_prefix"`
	WalletAddress   *string   `json:"wallet_address,omitempty"`
	DepositAmount   float64   `json:"deposit_amount"`
	ReputationScore int       `json:"reputation_score"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
