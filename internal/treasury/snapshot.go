package treasury

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
)

type SnapshotJobArgs struct{}

func (SnapshotJobArgs) Kind() string { return "treasury_snapshot" }

// BalanceReader reads the treasury's on-chain balance in SOL.
type BalanceReader interface {
	TreasuryBalance(ctx context.Context, address string) (float64, error)
}

// SnapshotStore persists balance snapshots.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, balanceSOL float64) error
}

// SnapshotWorker periodically records the treasury's on-chain balance so
// the treasury endpoint can answer even when the RPC node is down.
type SnapshotWorker struct {
	river.WorkerDefaults[SnapshotJobArgs]
	balance BalanceReader
	store   SnapshotStore
	address string
	logger  *slog.Logger
}

func NewSnapshotWorker(balance BalanceReader, store SnapshotStore, address string, logger *slog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		balance: balance,
		store:   store,
		address: address,
		logger:  logger,
	}
}

func (w *SnapshotWorker) Work(ctx context.Context, job *river.Job[SnapshotJobArgs]) error {
	if w.address == "" {
		w.logger.Debug("treasury snapshot skipped: no treasury address configured")
		return nil
	}

	balance, err := w.balance.TreasuryBalance(ctx, w.address)
	if err != nil {
		return fmt.Errorf("read treasury balance: %w", err)
	}
	if err := w.store.InsertSnapshot(ctx, balance); err != nil {
		return fmt.Errorf("store treasury snapshot: %w", err)
	}

	w.logger.Info("treasury snapshot recorded", "balance_sol", balance)
	return nil
}
