// Package notify delivers outbound chat messages. Every caller treats
// delivery as best-effort.
package notify

import (
	"context"
	"log/slog"

	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// Notifier sends text to a user or chat identified by its numeric id.
type Notifier interface {
	Notify(ctx context.Context, userID string, text string) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, userID string, text string) error

func (f Func) Notify(ctx context.Context, userID, text string) error {
	return f(ctx, userID, text)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// BestEffort wraps a Notifier so that failures are logged and swallowed.
type BestEffort struct {
	next Notifier
	log  *slog.Logger
}

func NewBestEffort(next Notifier, log *slog.Logger) *BestEffort {
	if log == nil {
		log = slog.Default()
	}
	if next == nil {
		next = Nop{}
	}
	return &BestEffort{next: next, log: log}
}

// Notify always returns nil.
func (b *BestEffort) Notify(ctx context.Context, userID, text string) error {
	if err := b.next.Notify(ctx, userID, text); err != nil {
		notifyErr := apperrors.NewNotificationError(userID, err)
		metrics.RecordNotification("failed")
		b.log.WarnContext(ctx, "notification dropped",
			slog.String("user_id", userID),
			slog.String("code", notifyErr.Code),
			slog.String("error", err.Error()),
		)
		return nil
	}
	metrics.RecordNotification("sent")
	return nil
}
