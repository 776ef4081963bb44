package internal

import (
	"context"

	"countdown_tui/internal/history"
)

// HistoryStore is where the UI records runs as they end.
//
//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=internal
type HistoryStore interface {
	Record(ctx context.Context, run *history.Run) error
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	Totals(ctx context.Context) (history.Totals, error)
	Delete(ctx context.Context, id string) error
}

var _ HistoryStore = (*history.Repository)(nil)
