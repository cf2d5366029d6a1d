package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/ratelimit"
)

// limitedCommands maps commands and callback actions onto the rule that
// guards them on top of the per-user rule.
var limitedCommands = map[string]string{
	"/redeem":             ratelimit.CommandRedeem,
	"/report":             ratelimit.CommandReport,
	keyboard.ActionClaim:  ratelimit.CommandClaim,
	keyboard.ActionReport: ratelimit.CommandReport,
}

// RateLimitMiddleware rejects updates over the global, per-user or
// per-command limits with a rate limit error carrying the wait time.
// Limiter failures let the update through.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
	now     func() time.Time
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimitMiddleware{limiter: limiter, rules: rules, log: log, now: time.Now}
}

func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if m.limiter == nil || !m.rules.Enabled() || sender == nil || m.rules.Exempt(sender.ID) {
			return next(c)
		}

		ctx := context.Background()
		if err := m.apply(ctx, ratelimit.GlobalKey, m.rules.Global()); err != nil {
			return err
		}
		if err := m.apply(ctx, ratelimit.UserKey(sender.ID), m.rules.PerUser()); err != nil {
			return err
		}
		if command, ok := limitedCommands[CommandName(c)]; ok {
			if err := m.apply(ctx, ratelimit.CommandKey(command, sender.ID), m.rules.Command(command)); err != nil {
				return err
			}
		}

		return next(c)
	}
}

func (m *RateLimitMiddleware) apply(ctx context.Context, key string, rule ratelimit.Rule) error {
	if !rule.Active() {
		return nil
	}

	result, err := m.limiter.Check(ctx, key, rule.Limit, rule.Window)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		m.log.Warn("rate limit exceeded", slog.String("key", key))
		return apperrors.NewRateLimitError(result.RetryAfter(m.now()))
	default:
		m.log.Warn("rate limiter unavailable", slog.String("key", key), slog.Any("error", err))
		return nil
	}
}
