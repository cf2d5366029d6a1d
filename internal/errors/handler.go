package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/rewards-bot/pkg/logger"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

const genericUserMessage = "Something went wrong. Please try again later."

// Handler logs failed updates by class, reports serious ones to Sentry and
// picks the reply shown to the user.
type Handler struct {
	log    *slog.Logger
	report bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, report: sentryEnabled}
}

// Handle returns the user reply for err and whether retrying may succeed.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		h.log.LogAttrs(ctx, slog.LevelError, "unclassified error", attrs(err, nil)...)
		metrics.RecordError("unclassified", string(SeverityHigh))
		h.capture(ctx, err, nil)
		return genericUserMessage, false
	}

	level, msg := classify(appErr)
	h.log.LogAttrs(ctx, level, msg, attrs(err, appErr)...)
	metrics.RecordError(string(appErr.Kind), string(appErr.Severity))
	if level == slog.LevelError && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
		h.capture(ctx, err, appErr)
	}

	if appErr.UserMessage == "" {
		return genericUserMessage, appErr.Retryable
	}
	return appErr.UserMessage, appErr.Retryable
}

func classify(e *AppError) (slog.Level, string) {
	switch {
	case IsUserFacing(e):
		return slog.LevelInfo, "request rejected"
	case e.Kind == KindNotification:
		return slog.LevelWarn, "notification failed"
	default:
		return slog.LevelError, "application error"
	}
}

func attrs(err error, appErr *AppError) []slog.Attr {
	attrs := []slog.Attr{slog.String("error", err.Error())}
	if appErr != nil {
		attrs = append(attrs,
			slog.String("code", appErr.Code),
			slog.String("kind", string(appErr.Kind)),
			slog.Bool("retryable", appErr.Retryable),
		)
	}
	return attrs
}

func (h *Handler) capture(ctx context.Context, err error, appErr *AppError) {
	if !h.report {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		if appErr != nil {
			scope.SetTag("code", appErr.Code)
			scope.SetTag("kind", string(appErr.Kind))
			scope.SetLevel(sentryLevel(appErr.Severity))
		}
		hub.CaptureException(err)
	})
}

func sentryLevel(s Severity) sentry.Level {
	if s == SeverityCritical {
		return sentry.LevelFatal
	}
	return sentry.LevelError
}
