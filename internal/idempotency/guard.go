// Package idempotency makes update handling at-most-once. Telegram
// redelivers updates after restarts and timeouts, and a repeated claim or
// redemption must not run twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

var (
	ErrDuplicate        = errors.New("idempotency: key already processed")
	ErrInProgress       = errors.New("idempotency: key is being processed")
	ErrStoreUnavailable = errors.New("idempotency: store unavailable")
)

// processingTTL bounds how long a crashed handler blocks its key.
const processingTTL = 5 * time.Minute

// Manager runs fn at most once per key.
type Manager interface {
	Do(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Guard implements Manager on top of a Store.
type Guard struct {
	store Store
	log   *slog.Logger
}

var _ Manager = (*Guard)(nil)

func NewManager(store Store, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{store: store, log: log}
}

// Do returns ErrDuplicate once key completed within ttl and ErrInProgress
// while another caller runs it. A failed fn releases the key so the next
// delivery retries. Store failures are wrapped in ErrStoreUnavailable
// before fn runs.
func (g *Guard) Do(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	status, err := g.store.Begin(ctx, key, processingTTL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	switch status {
	case StatusDone:
		return ErrDuplicate
	case StatusProcessing:
		return ErrInProgress
	}

	if err := fn(ctx); err != nil {
		if abortErr := g.store.Abort(ctx, key); abortErr != nil {
			g.log.Warn("failed to release idempotency key", slog.String("key", key), slog.Any("error", abortErr))
		}
		return err
	}

	if err := g.store.Finish(ctx, key, ttl); err != nil {
		g.log.Warn("failed to mark idempotency key done", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}

// UpdateKey identifies one Telegram update.
func UpdateKey(updateID int) string {
	return "update:" + strconv.Itoa(updateID)
}

// CallbackKey identifies a callback query when the update id is unknown.
func CallbackKey(callbackID string) string {
	return "callback:" + callbackID
}

// MessageKey identifies a message when the update id is unknown.
func MessageKey(chatID int64, messageID int) string {
	return "message:" + strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}
