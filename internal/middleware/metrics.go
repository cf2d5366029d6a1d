package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// Metrics records the duration and outcome of every handled update.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)
		metrics.RecordCommand(CommandName(c), outcomeLabel(err), time.Since(start))
		return err
	}
}

// outcomeLabel separates requests the user got wrong from real failures.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.IsUserFacing(err):
		return "rejected"
	default:
		return "error"
	}
}

// CommandName reduces an update to a low-cardinality label: the command
// without arguments or bot suffix, the callback action, "document" or
// "text".
func CommandName(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		action, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			return "unknown"
		}
		return action
	}

	if text := strings.TrimSpace(c.Text()); strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
		return strings.ToLower(cmd)
	}

	if m := c.Message(); m != nil && m.Document != nil {
		return "document"
	}
	return "text"
}
