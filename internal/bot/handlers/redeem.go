package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/state"
)

// NewRedeemCommandHandler handles "/redeem <code>". Without a code it asks
// for one and waits in StateAwaitingRedeemCode.
func NewRedeemCommandHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		if e.Payload == "" {
			if err := d.FSM.TransitionTo(ctx, e.ActorID, state.StateAwaitingRedeemCode, nil); err != nil {
				return err
			}
			return c.Send(d.T("redeem.prompt"), d.Keyboard.Cancel())
		}

		return redeem(ctx, d, c, e, e.Payload)
	}
}

// NewRedeemCodeStateHandler consumes the code typed after the prompt.
func NewRedeemCodeStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		return redeem(ctx, d, c, e, e.Text)
	}
}

func redeem(ctx context.Context, d *Deps, c telebot.Context, e Event, code string) error {
	result, err := d.Ledger.RedeemCode(ctx, code, e.UserID())
	if err != nil {
		return err
	}
	return c.Send(d.Tf("redeem.success", result.Points, result.NewBalance))
}
