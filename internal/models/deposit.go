package models

import (
	"time"

	"github.com/google/uuid"
)

// Deposits are only persisted after on-chain verification, so the status is
// effectively always confirmed.
const DepositStatusConfirmed = "confirmed"

type Deposit struct {
	ID            uuid.UUID `json:"id"`
	AgentID       uuid.UUID `json:"agent_id"`
	WalletAddress string    `json:"wallet_address"`
	Amount        float64   `json:"amount"`
	TxSignature   string    `json:"tx_signature"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
