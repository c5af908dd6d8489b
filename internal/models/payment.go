package models

import (
	"time"

	"github.com/google/uuid"
)

const PaymentStatusConfirmed = "confirmed"

// Payment is an on-chain transfer between two agents' wallets. It never
// touches the treasury or either agent's deposit balance.
type Payment struct {
	ID              uuid.UUID `json:"id"`
	SenderAgentID   uuid.UUID `json:"sender_agent_id"`
	ReceiverAgentID uuid.UUID `json:"receiver_agent_id"`
	Amount          float64   `json:"amount"`
	TxSignature     string    `json:"tx_signature"`
	Description     *string   `json:"description,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
