package services

import (
	"context"
	"math"

	"github.com/agentwiki/backend/internal/solana"
)

// AmountTolerance absorbs float representation error when comparing a
// requested SOL amount against the lamports recorded on-chain.
const AmountTolerance = 1e-6

// LedgerClient is the read-only chain access the verifier needs.
type LedgerClient interface {
	GetParsedTransaction(ctx context.Context, signature string) (*solana.ParsedTransaction, error)
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// Verifier checks a submitted transaction signature against an expected
// native transfer before any ledger state is credited. It is side-effect-free
// and safe to retry; the RPC round trip dominates its latency.
type Verifier struct {
	client LedgerClient
}

func NewVerifier(client LedgerClient) *Verifier {
	return &Verifier{client: client}
}

// VerifyTransfer fails closed: it returns ErrTxNotFound when the signature is
// unknown, ErrTxFailed when the cluster recorded an execution error, and
// ErrTxMismatch when no transfer instruction moves expectedAmount SOL from
// expectedSender to expectedRecipient. The first matching instruction
// satisfies the check; the transaction may carry others.
func (v *Verifier) VerifyTransfer(ctx context.Context, signature, expectedSender, expectedRecipient string, expectedAmount float64) error {
	tx, err := v.client.GetParsedTransaction(ctx, signature)
	if err != nil {
		return err
	}
	if tx == nil {
		return ErrTxNotFound
	}
	if tx.Failed() {
		return ErrTxFailed
	}

	for _, ix := range tx.Transaction.Message.Instructions {
		if !ix.IsSystemTransfer() {
			continue
		}
		info := ix.Parsed.Info
		solAmount := float64(info.Lamports) / solana.LamportsPerSOL
		if info.Source == expectedSender &&
			info.Destination == expectedRecipient &&
			math.Abs(solAmount-expectedAmount) < AmountTolerance {
			return nil
		}
	}
	return ErrTxMismatch
}

// TreasuryBalance returns the treasury wallet's confirmed balance in SOL.
func (v *Verifier) TreasuryBalance(ctx context.Context, address string) (float64, error) {
	lamports, err := v.client.GetBalance(ctx, address)
	if err != nil {
		return 0, err
	}
	return float64(lamports) / solana.LamportsPerSOL, nil
}
