package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/domain"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/state"
)

const broadcastTimeout = time.Hour

// NewLendHandler handles "/lend <user id> <amount> [message]".
func NewLendHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if err := d.requireOwner(e); err != nil {
			return err
		}

		args := strings.Fields(e.Payload)
		if len(args) < 2 {
			return apperrors.NewValidationError("usage: /lend <user_id> <amount> [message]")
		}
		amount, ok := parseInt64(args[1])
		if !ok {
			return apperrors.NewValidationError("amount must be a whole number")
		}
		message := strings.Join(args[2:], " ")

		balance, err := d.Ledger.Admin.LendPoints(context.Background(), e.UserID(), args[0], amount, message)
		if err != nil {
			return err
		}
		return c.Send(d.Tf("owner.lent", amount, args[0], balance))
	}
}

// NewGenerateKeysHandler handles "/gen <normal|premium> <qty> [points]".
func NewGenerateKeysHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if err := d.requireOwner(e); err != nil {
			return err
		}

		args := strings.Fields(e.Payload)
		if len(args) < 2 {
			return apperrors.NewValidationError("usage: /gen <normal|premium> <quantity> [points]")
		}
		kind := domain.KeyKind(strings.ToLower(args[0]))
		if !kind.Valid() {
			return apperrors.NewValidationError("key type must be normal or premium")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return apperrors.NewValidationError("quantity must be a whole number")
		}
		var points int64
		if len(args) > 2 {
			p, ok := parseInt64(args[2])
			if !ok || p <= 0 {
				return apperrors.NewValidationError("points must be a positive whole number")
			}
			points = p
		}

		codes, err := d.Ledger.Admin.GenerateKeys(context.Background(), e.UserID(), kind, qty, points)
		if err != nil {
			return err
		}
		return c.Send(d.Tf("owner.keys_generated", len(codes), kind, strings.Join(codes, "\n")))
	}
}

// NewSetClaimCostHandler handles "/uprice <points>".
func NewSetClaimCostHandler(d *Deps) Handler {
	return newConfigHandler(d, "owner.claim_cost_set", func(ctx context.Context, actor string, v int64) error {
		return d.Ledger.Admin.SetClaimCost(ctx, actor, v)
	})
}

// NewSetReferralBonusHandler handles "/rpoints <points>".
func NewSetReferralBonusHandler(d *Deps) Handler {
	return newConfigHandler(d, "owner.referral_bonus_set", func(ctx context.Context, actor string, v int64) error {
		return d.Ledger.Admin.SetReferralBonus(ctx, actor, v)
	})
}

func newConfigHandler(d *Deps, doneKey string, set func(ctx context.Context, actor string, v int64) error) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if err := d.requireOwner(e); err != nil {
			return err
		}

		value, ok := parseInt64(e.Payload)
		if !ok {
			return apperrors.NewValidationError("send a whole number of points")
		}
		if err := set(context.Background(), e.UserID(), value); err != nil {
			return err
		}
		return c.Send(d.Tf(doneKey, value))
	}
}

// NewBroadcastHandler handles "/broadcast [text]". Without text the next
// message is broadcast.
func NewBroadcastHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if err := d.requireOwner(e); err != nil {
			return err
		}

		if e.Payload == "" {
			if err := d.FSM.TransitionTo(context.Background(), e.ActorID, state.StateAdminBroadcast, nil); err != nil {
				return err
			}
			return c.Send(d.T("owner.broadcast_prompt"), d.Keyboard.Cancel())
		}
		return startBroadcast(d, c, e, e.Payload)
	}
}

// NewBroadcastStateHandler broadcasts the message typed after the prompt.
func NewBroadcastStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		if err := d.requireOwner(e); err != nil {
			return err
		}
		return startBroadcast(d, c, e, e.Text)
	}
}

// startBroadcast runs the paced delivery in the background and reports the
// totals to the owner when done.
func startBroadcast(d *Deps, c telebot.Context, e Event, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("broadcast message must not be empty")
	}

	recipients, err := d.Ledger.Admin.UserIDs(context.Background())
	if err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		defer cancel()

		report, err := d.Broadcaster.Broadcast(ctx, recipients, text)
		if err != nil {
			d.logger().Warn("broadcast interrupted", slog.Any("error", err))
		}
		if _, err := d.Sender.Send(e.DM(), d.Tf("owner.broadcast_done", report.Sent, report.Failed)); err != nil {
			d.logger().Warn("failed to report broadcast result", slog.Any("error", err))
		}
	}()

	return c.Send(d.Tf("owner.broadcast_started", len(recipients)))
}
