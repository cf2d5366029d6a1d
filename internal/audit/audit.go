// Package audit records ledger and admin events. Sinks are fire-and-forget:
// LogEvent never fails the operation that emitted the event.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Kind string

const (
	KindStart           Kind = "start"
	KindClaim           Kind = "account_claim"
	KindClaimRejected   Kind = "account_claim_rejected"
	KindKeyClaim        Kind = "key_claim"
	KindKeyRejected     Kind = "key_claim_rejected"
	KindReferral        Kind = "referral"
	KindReferralSkipped Kind = "referral_skipped"
	KindAdmin           Kind = "admin"
	KindStock           Kind = "stock"
	KindReport          Kind = "report"
	KindReview          Kind = "review"
	KindError           Kind = "error"
)

// Actor identifies who triggered an event.
type Actor struct {
	ID       string
	Username string
}

type Sink interface {
	LogEvent(ctx context.Context, kind Kind, message string, actor *Actor)
}

// Format renders an event the way operators read it in the logs channel.
func Format(kind Kind, message string, actor *Actor) string {
	label := "[" + strings.ToUpper(string(kind)) + "]"
	if actor == nil {
		return label + " " + message
	}

	username := actor.Username
	if username == "" {
		username = "N/A"
	}
	return fmt.Sprintf("%s User ID: %s, Username: %s - %s", label, actor.ID, username, message)
}

// LogSink writes events to a structured logger.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log.With(slog.String("component", "audit"))}
}

func (s *LogSink) LogEvent(ctx context.Context, kind Kind, message string, actor *Actor) {
	attrs := []any{slog.String("kind", string(kind)), slog.String("message", message)}
	if actor != nil {
		attrs = append(attrs, slog.String("actor_id", actor.ID), slog.String("actor_username", actor.Username))
	}
	s.log.InfoContext(ctx, "audit event", attrs...)
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) LogEvent(ctx context.Context, kind Kind, message string, actor *Actor) {
	for _, s := range m {
		if s != nil {
			s.LogEvent(ctx, kind, message, actor)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) LogEvent(context.Context, Kind, string, *Actor) {}
