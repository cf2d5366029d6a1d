package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	errors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/internal/middleware"
	"github.com/Proton-105/rewards-bot/internal/state"
	"github.com/Proton-105/rewards-bot/pkg/logger"
)

const requestContextKey = "request_ctx"

// requestContext returns the context carrying the update's correlation id.
func requestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// RecoveryMiddleware turns a handler panic into an internal error reply.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				replyWithError(c, errHandler, errors.NewPersistenceError("handler", fmt.Errorf("panic: %v", r), false))
				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware answers a failed update and swallows the error
// so telebot does not log it a second time.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if err := next(c); err != nil {
				replyWithError(c, errHandler, err)
			}
			return nil
		}
	}
}

func replyWithError(c telebot.Context, errHandler *errors.Handler, err error) {
	if stderrors.Is(err, state.ErrStateLocked) || stderrors.Is(err, state.ErrInvalidTransition) {
		err = errors.NewStateError("dialog is busy").WithCause(err)
	}
	msg := "Something went wrong. Please try again later."
	if errHandler != nil {
		if m, _ := errHandler.Handle(requestContext(c), err); m != "" {
			msg = m
		}
	}
	if c != nil {
		_ = c.Send(msg)
	}
}

// LoggingMiddleware tags the update with a correlation id and logs its outcome.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			ctx := logger.WithCorrelationID(context.Background(), "")
			c.Set(requestContextKey, ctx)

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}
			action := middleware.CommandName(c)

			log.DebugContext(ctx, "handling update", slog.Int64("user_id", userID), slog.String("action", action))
			err := next(c)
			log.InfoContext(ctx, "handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// EnsureUserMiddleware registers the sender on first contact and loads the
// account into the context. Banned users are stopped here. Plain group
// chatter passes through without creating accounts.
func EnsureUserMiddleware(accounts *ledger.Accounts, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if accounts == nil || c == nil || c.Sender() == nil || c.Sender().IsBot {
				return next(c)
			}

			e := handlers.NewEvent(c)
			cmd := commandName(e.Text)
			if !e.Private && cmd == "" && c.Callback() == nil {
				return next(c)
			}

			referrer := ""
			if cmd == CommandStart {
				referrer = ledger.ParseReferralPayload(e.Payload)
			}

			ctx := requestContext(c)
			user, created, err := accounts.EnsureUser(ctx, e.UserID(), e.DisplayName(), referrer)
			if err != nil {
				log.ErrorContext(ctx, "failed to ensure user", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
				return err
			}
			if created {
				log.InfoContext(ctx, "created new user", slog.Int64("user_id", e.ActorID), slog.String("referrer", referrer))
			}

			c.Set(handlers.ContextUserKey, user)
			c.Set(handlers.ContextNewUserKey, created)

			if user.Banned {
				return ledger.ErrUserBanned
			}

			return next(c)
		}
	}
}
