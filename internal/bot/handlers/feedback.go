package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/state"
)

// NewReviewPromptHandler starts the review dialog.
func NewReviewPromptHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if err := d.FSM.TransitionTo(context.Background(), e.ActorID, state.StateAwaitingReview, nil); err != nil {
			return err
		}
		return c.Send(d.T("review.prompt"), d.Keyboard.Cancel())
	}
}

// NewReviewStateHandler stores the review typed after the prompt.
func NewReviewStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		if err := d.Ledger.Admin.SubmitReview(ctx, e.UserID(), e.DisplayName(), e.Text); err != nil {
			return err
		}
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			d.logger().Warn("failed to close review dialog", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
		}
		return c.Send(d.T("review.thanks"))
	}
}

// NewReportCommandHandler handles "/report [text]" and the report button.
func NewReportCommandHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if e.Payload != "" {
			return submitReport(context.Background(), d, c, e, e.Payload)
		}

		if err := d.FSM.TransitionTo(context.Background(), e.ActorID, state.StateAwaitingReport, nil); err != nil {
			return err
		}
		return c.Send(d.T("report.prompt"), d.Keyboard.Cancel())
	}
}

// NewReportStateHandler stores the report typed after the prompt.
func NewReportStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		if err := submitReport(ctx, d, c, e, e.Text); err != nil {
			return err
		}
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			d.logger().Warn("failed to close report dialog", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
		}
		return nil
	}
}

func submitReport(ctx context.Context, d *Deps, c telebot.Context, e Event, body string) error {
	id, err := d.Ledger.Admin.SubmitReport(ctx, e.UserID(), e.DisplayName(), body)
	if err != nil {
		return err
	}

	for _, owner := range d.Ledger.Accounts.OwnerIDs() {
		chatID, ok := parseInt64(owner)
		if !ok {
			continue
		}
		if _, err := d.Sender.Send(telebot.ChatID(chatID), d.Tf("report.owner_actions", id), d.Keyboard.ReportActions(id)); err != nil {
			d.logger().Warn("failed to send report actions", slog.String("owner", owner), slog.Any("error", err))
		}
	}

	return c.Send(d.Tf("report.thanks", id))
}

// NewReportClaimHandler lets an admin take a report.
func NewReportClaimHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		id, ok := parseInt64(callbackData(c))
		if !ok {
			return nil
		}
		if err := d.Ledger.Admin.ClaimReport(ctx, e.UserID(), id); err != nil {
			return err
		}
		return c.EditOrSend(d.Tf("report.claimed", id, e.DisplayName()), d.Keyboard.ReportActions(id))
	}
}

// NewReportCloseHandler resolves a report; the reporter is notified.
func NewReportCloseHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		id, ok := parseInt64(callbackData(c))
		if !ok {
			return nil
		}
		if err := d.Ledger.Admin.CloseReport(ctx, e.UserID(), id); err != nil {
			return err
		}
		return c.EditOrSend(d.Tf("report.closed", id, e.DisplayName()))
	}
}
