package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/ledger"
)

// NewStartHandler greets the user, resets any dialog and shows the main
// menu once channel membership is confirmed. The referral payload is
// consumed by the user middleware before this runs.
func NewStartHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if e.ActorID == 0 {
			d.logger().Warn("start handler invoked without sender")
			return nil
		}

		if !e.Private {
			return c.Send(d.Tf("start.group", d.BotUsername))
		}

		ctx := context.Background()
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			d.logger().Warn("failed to reset dialog", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
		}

		user := CurrentUser(c)
		if user == nil {
			return ledger.ErrUserNotFound
		}
		if user.Banned {
			return ledger.ErrUserBanned
		}

		greeting := d.Tf("start.welcome_back", e.DisplayName())
		if created, _ := c.Get(ContextNewUserKey).(bool); created {
			greeting = d.Tf("start.welcome", e.DisplayName(), user.Points)
		}
		if err := c.Send(greeting); err != nil {
			return err
		}

		ok, err := d.ensureVerified(ctx, c, e)
		if err != nil || !ok {
			return err
		}

		return c.Send(d.T("menu.main"), d.Keyboard.MainMenu(d.isAdmin(ctx, e)))
	}
}

// NewVerifyHandler re-checks membership after the user joined the channels.
func NewVerifyHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		ok, err := d.ensureVerified(ctx, c, e)
		if err != nil || !ok {
			return err
		}

		return c.EditOrSend(d.T("verify.done"), d.Keyboard.MainMenu(d.isAdmin(ctx, e)))
	}
}
