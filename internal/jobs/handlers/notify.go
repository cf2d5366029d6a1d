package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/rewards-bot/internal/jobs"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// NotifyHandler delivers queued messages. A failed send is returned so
// asynq retries it; a malformed payload is dropped.
type NotifyHandler struct {
	sender notify.Notifier
	log    *slog.Logger
}

func NewNotifyHandler(sender notify.Notifier, log *slog.Logger) *NotifyHandler {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyHandler{sender: sender, log: log}
}

func (h *NotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := jobs.DecodeNotifyPayload(t)
	if err != nil {
		h.log.ErrorContext(ctx, "notify: dropping malformed task", slog.String("error", err.Error()))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.sender.Notify(ctx, payload.ChatID, payload.Text); err != nil {
		metrics.RecordNotification("retry")
		h.log.WarnContext(ctx, "notify: delivery failed", slog.String("chat_id", payload.ChatID), slog.String("error", err.Error()))
		return err
	}

	metrics.RecordNotification("delivered")
	return nil
}
