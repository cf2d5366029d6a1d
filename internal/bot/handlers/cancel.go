package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"
)

// NewCancelHandler abandons the open dialog, if any, and shows the main
// menu. It serves both /cancel and the inline cancel button.
func NewCancelHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if e.ActorID == 0 {
			return nil
		}

		ctx := context.Background()
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		return c.EditOrSend(d.T("cancel.done"), d.Keyboard.MainMenu(d.isAdmin(ctx, e)))
	}
}
