package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner resets dialogs idle for longer than maxAge. Redis entries expire
// by themselves; in-memory storage relies on this loop.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewCleaner(storage Storage, log *slog.Logger, maxAge, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Cleaner{storage: storage, log: log, maxAge: maxAge, interval: interval, now: time.Now}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c.storage == nil || c.maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.sweep(ctx); n > 0 {
				c.log.Info("abandoned dialogs reset", slog.Int("count", n))
			}
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) int {
	states, err := c.storage.List(ctx)
	if err != nil {
		c.log.Error("list dialogs failed", slog.Any("error", err))
		return 0
	}

	cutoff := c.now().Add(-c.maxAge)
	reset := 0
	for _, st := range states {
		if st == nil || !st.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := c.storage.Delete(ctx, st.UserID); err != nil {
			c.log.Error("reset dialog failed", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		reset++
	}
	return reset
}
