package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	"github.com/Proton-105/rewards-bot/internal/idempotency"
)

// Telegram stops redelivering an update well within a day.
const updateKeyTTL = 24 * time.Hour

// Idempotency drops redelivered updates. When the store is unreachable
// the update is handled anyway.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if manager == nil || next == nil {
			return next
		}

		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			err := manager.Do(context.Background(), key, updateKeyTTL, func(context.Context) error {
				return next(c)
			})
			switch {
			case err == nil:
				return nil
			case errors.Is(err, idempotency.ErrDuplicate), errors.Is(err, idempotency.ErrInProgress):
				log.Debug("duplicate update dropped", slog.String("key", key), slog.Any("reason", err))
				return nil
			case errors.Is(err, idempotency.ErrStoreUnavailable):
				log.Warn("idempotency store unavailable, handling update", slog.String("key", key), slog.Any("error", err))
				return next(c)
			default:
				return err
			}
		}
	}
}

func updateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}
	if id := c.Update().ID; id != 0 {
		return idempotency.UpdateKey(id)
	}
	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return idempotency.CallbackKey(cb.ID)
	}
	if msg := c.Message(); msg != nil && msg.ID != 0 && msg.Chat != nil {
		return idempotency.MessageKey(msg.Chat.ID, msg.ID)
	}
	return ""
}
