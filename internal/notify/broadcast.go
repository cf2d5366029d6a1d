package notify

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// Broadcaster paces a message to many recipients under the Bot API limits.
type Broadcaster struct {
	next    Notifier
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewBroadcaster sends at most perSecond messages per second.
func NewBroadcaster(next Notifier, perSecond float64, log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Broadcaster{next: next, limiter: rate.NewLimiter(limit, 1), log: log}
}

type BroadcastReport struct {
	Sent   int
	Failed int
}

// Broadcast stops early only when ctx is cancelled.
func (b *Broadcaster) Broadcast(ctx context.Context, recipients []string, text string) (BroadcastReport, error) {
	var report BroadcastReport
	for _, id := range recipients {
		if err := b.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if err := b.next.Notify(ctx, id, text); err != nil {
			report.Failed++
			b.log.DebugContext(ctx, "broadcast delivery failed", slog.String("user_id", id), slog.String("error", err.Error()))
			continue
		}
		report.Sent++
	}

	b.log.InfoContext(ctx, "broadcast finished", slog.Int("sent", report.Sent), slog.Int("failed", report.Failed))
	return report, nil
}
