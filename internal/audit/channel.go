package audit

import (
	"context"
	"log/slog"
)

// Poster delivers a text to a chat. It matches notify.Notifier.
type Poster interface {
	Notify(ctx context.Context, chatID string, text string) error
}

// ChannelSink forwards formatted events to the operations chat. Delivery
// failures are logged and dropped.
type ChannelSink struct {
	poster Poster
	chatID string
	log    *slog.Logger
}

func NewChannelSink(poster Poster, chatID string, log *slog.Logger) *ChannelSink {
	if log == nil {
		log = slog.Default()
	}
	return &ChannelSink{poster: poster, chatID: chatID, log: log}
}

func (s *ChannelSink) LogEvent(ctx context.Context, kind Kind, message string, actor *Actor) {
	if s.poster == nil || s.chatID == "" {
		return
	}
	if err := s.poster.Notify(ctx, s.chatID, Format(kind, message, actor)); err != nil {
		s.log.WarnContext(ctx, "failed to forward audit event",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}
