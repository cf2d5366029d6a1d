package notify

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
)

// Sender is the part of *telebot.Bot used for delivery.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram sends messages directly through the Bot API, guarded by a
// circuit breaker so a Telegram outage does not stall every handler.
type Telegram struct {
	sender  Sender
	breaker *apperrors.CircuitBreaker
	opts    []interface{}
}

func NewTelegram(sender Sender, breaker *apperrors.CircuitBreaker, opts ...interface{}) *Telegram {
	if breaker == nil {
		breaker = apperrors.NewCircuitBreaker(apperrors.DefaultBreakerSettings())
	}
	if len(opts) == 0 {
		opts = []interface{}{tele.NoPreview}
	}
	return &Telegram{sender: sender, breaker: breaker, opts: opts}
}

func (t *Telegram) Notify(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", userID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.breaker.Call(func() error {
		if _, err := t.sender.Send(tele.ChatID(chatID), text, t.opts...); err != nil {
			return apperrors.NewExternalAPIError("telegram", err)
		}
		return nil
	})
}
