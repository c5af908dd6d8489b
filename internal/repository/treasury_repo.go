package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TreasuryRepo stores periodic on-chain balance snapshots of the treasury
// wallet so the treasury endpoint can serve a last-known value when the RPC
// is unreachable.
type TreasuryRepo struct {
	pool *pgxpool.Pool
}

func NewTreasuryRepo(pool *pgxpool.Pool) *TreasuryRepo {
	return &TreasuryRepo{pool: pool}
}

type TreasurySnapshot struct {
	BalanceSOL float64   `json:"balance_sol"`
	TakenAt    time.Time `json:"taken_at"`
}

func (r *TreasuryRepo) InsertSnapshot(ctx context.Context, balanceSOL float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO treasury_snapshots (balance_sol) VALUES ($1)
	`, balanceSOL)
	return err
}

// LatestSnapshot returns the most recent snapshot, or (nil, nil) if none
// has been taken yet.
func (r *TreasuryRepo) LatestSnapshot(ctx context.Context) (*TreasurySnapshot, error) {
	var s TreasurySnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT balance_sol, taken_at FROM treasury_snapshots
		ORDER BY taken_at DESC LIMIT 1
	`).Scan(&s.BalanceSOL, &s.TakenAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
