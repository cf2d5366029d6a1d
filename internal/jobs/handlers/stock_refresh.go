package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// SnapshotSource reports ledger totals.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (ledger.Snapshot, error)
}

// StockRefreshHandler republishes the stock, user and key gauges.
type StockRefreshHandler struct {
	source SnapshotSource
	log    *slog.Logger
}

func NewStockRefreshHandler(source SnapshotSource, log *slog.Logger) *StockRefreshHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StockRefreshHandler{source: source, log: log}
}

func (h *StockRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	snap, err := h.source.Snapshot(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "stock refresh: snapshot failed", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		return err
	}

	metrics.SetPlatformStock(snap.Stock)
	metrics.SetUsers(snap.Users)
	metrics.SetKeys(snap.KeysTotal, snap.KeysClaimed)

	h.log.DebugContext(ctx, "stock gauges refreshed",
		slog.Int("platforms", len(snap.Stock)),
		slog.Int64("users", snap.Users),
	)
	return nil
}
