package treasury

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/riverqueue/river"
)

type fakeBalance struct {
	balance float64
	err     error
}

func (f fakeBalance) TreasuryBalance(context.Context, string) (float64, error) {
	return f.balance, f.err
}

type captureStore struct {
	inserted []float64
}

func (s *captureStore) InsertSnapshot(_ context.Context, balanceSOL float64) error {
	s.inserted = append(s.inserted, balanceSOL)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotWorker_RecordsBalance(t *testing.T) {
	store := &captureStore{}
	w := NewSnapshotWorker(fakeBalance{balance: 3.25}, store, "Treasury", testLogger())

	if err := w.Work(context.Background(), &river.Job[SnapshotJobArgs]{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 || store.inserted[0] != 3.25 {
		t.Fatalf("expected one snapshot of 3.25, got %v", store.inserted)
	}
}

func TestSnapshotWorker_RPCFailureRetries(t *testing.T) {
	store := &captureStore{}
	w := NewSnapshotWorker(fakeBalance{err: errors.New("rpc down")}, store, "Treasury", testLogger())

	if err := w.Work(context.Background(), &river.Job[SnapshotJobArgs]{}); err == nil {
		t.Fatal("expected error so river retries the job")
	}
	if len(store.inserted) != 0 {
		t.Error("no snapshot should be written on failure")
	}
}

func TestSnapshotWorker_NoAddressConfigured(t *testing.T) {
	store := &captureStore{}
	w := NewSnapshotWorker(fakeBalance{balance: 1}, store, "", testLogger())

	if err := w.Work(context.Background(), &river.Job[SnapshotJobArgs]{}); err != nil {
		t.Fatalf("expected nil for unconfigured address, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Error("no snapshot should be written without an address")
	}
}
