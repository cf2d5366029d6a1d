package handlers

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	"github.com/Proton-105/rewards-bot/internal/i18n"
	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/internal/state"
	"github.com/Proton-105/rewards-bot/internal/verification"
)

// Verifier checks required channel membership.
type Verifier interface {
	Verify(ctx context.Context, userID int64) (verification.Result, error)
}

// Files downloads uploaded documents.
type Files interface {
	File(file *telebot.File) (io.ReadCloser, error)
}

// Deps carries everything handlers need. Constructors take a pointer so
// the bot can finish wiring after the telebot instance exists.
type Deps struct {
	Ledger      *ledger.Ledger
	FSM         state.StateMachine
	Keyboard    *keyboard.Builder
	Translator  i18n.Translator
	Verifier    Verifier
	Sender      notify.Sender
	Files       Files
	Broadcaster *notify.Broadcaster
	BotUsername string
	Log         *slog.Logger

	// UploadAttempts and UploadDelay bound document downloads.
	UploadAttempts int
	UploadDelay    time.Duration
}

func (d *Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// T translates key.
func (d *Deps) T(key string) string {
	if d.Translator == nil {
		return key
	}
	return d.Translator.T(key)
}

// Tf translates key and formats it with args.
func (d *Deps) Tf(key string, args ...any) string {
	return i18n.Tf(d.Translator, key, args...)
}

func (d *Deps) isAdmin(ctx context.Context, e Event) bool {
	ok, err := d.Ledger.Accounts.IsAdmin(ctx, e.UserID())
	if err != nil {
		d.logger().Error("admin lookup failed", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
		return false
	}
	return ok
}

func (d *Deps) requireAdmin(ctx context.Context, e Event) error {
	if !d.isAdmin(ctx, e) {
		return ledger.ErrNotAuthorized
	}
	return nil
}

func (d *Deps) requireOwner(e Event) error {
	if !d.Ledger.Accounts.IsOwner(e.UserID()) {
		return ledger.ErrNotAuthorized
	}
	return nil
}

// ensureVerified shows the join screen and returns false when the user is
// missing a required channel. Verified users complete a pending referral.
func (d *Deps) ensureVerified(ctx context.Context, c telebot.Context, e Event) (bool, error) {
	if d.Verifier != nil {
		res, err := d.Verifier.Verify(ctx, e.ActorID)
		if err != nil {
			return false, err
		}
		if !res.Verified {
			return false, c.Send(d.T("verify.required"), d.Keyboard.Verify(res.Missing))
		}
	}

	if u := CurrentUser(c); u == nil || !u.Verified {
		if _, err := d.Ledger.CompleteReferralIfPending(ctx, e.UserID()); err != nil {
			d.logger().Error("referral completion failed", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
		}
	}
	return true, nil
}

// callbackData returns the payload after the action prefix.
func callbackData(c telebot.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	_, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil {
		return ""
	}
	return data
}

func parseInt64(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
