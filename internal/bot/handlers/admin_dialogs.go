package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/domain"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/internal/state"
)

const (
	defaultUploadAttempts = 3
	defaultUploadDelay    = 2 * time.Second
)

// dialog loads the state and checks admin rights for an admin state handler.
func (d *Deps) dialog(ctx context.Context, e Event) (*state.UserState, error) {
	if err := d.requireAdmin(ctx, e); err != nil {
		_ = d.FSM.ClearState(ctx, e.ActorID)
		return nil, err
	}
	return d.FSM.Current(ctx, e.ActorID)
}

// NewPlatformNameStateHandler creates the platform and moves on to the
// stock upload step.
func NewPlatformNameStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		st, err := d.dialog(ctx, e)
		if err != nil {
			return err
		}

		kind := domain.PlatformKind(st.String(state.KeyPlatformKind))
		if err := d.Ledger.Admin.AddPlatform(ctx, e.UserID(), e.Text, kind, 0); err != nil {
			return err
		}

		next := map[string]interface{}{state.KeyPlatform: e.Text, state.KeyReplace: false}
		if err := d.FSM.TransitionTo(ctx, e.ActorID, state.StateAdminStockUpload, next); err != nil {
			return err
		}
		return c.Send(d.Tf("admin.platform_added", e.Text), d.Keyboard.Cancel())
	}
}

// NewPlatformRenameStateHandler renames the platform stored in the dialog.
func NewPlatformRenameStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		st, err := d.dialog(ctx, e)
		if err != nil {
			return err
		}

		oldName := st.String(state.KeyPlatform)
		if err := d.Ledger.Admin.RenamePlatform(ctx, e.UserID(), oldName, e.Text); err != nil {
			return err
		}
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		return c.Send(d.Tf("admin.platform_renamed", oldName, e.Text), d.Keyboard.AdminPlatform(e.Text))
	}
}

// NewPlatformPriceStateHandler sets the price; 0 means the global claim cost.
func NewPlatformPriceStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		st, err := d.dialog(ctx, e)
		if err != nil {
			return err
		}

		price, ok := parseInt64(e.Text)
		if !ok || price < 0 {
			return apperrors.NewValidationError("price must be a whole number of points")
		}

		name := st.String(state.KeyPlatform)
		if err := d.Ledger.Admin.SetPrice(ctx, e.UserID(), name, price); err != nil {
			return err
		}
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		return c.Send(d.Tf("admin.price_set", name, price), d.Keyboard.AdminPlatform(name))
	}
}

// NewStockUploadStateHandler accepts stock as message text or as an
// uploaded document and appends or replaces the platform's stock.
func NewStockUploadStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		st, err := d.dialog(ctx, e)
		if err != nil {
			return err
		}

		name := st.String(state.KeyPlatform)
		platform, _, err := d.Ledger.Admin.Platform(ctx, name)
		if err != nil {
			_ = d.FSM.ClearState(ctx, e.ActorID)
			return err
		}

		raw := e.Text
		if m := c.Message(); m != nil && m.Document != nil {
			data, err := d.download(ctx, m.Document)
			if err != nil {
				return err
			}
			raw = ledger.DecodeUpload(data)
		}

		items := ledger.ParseStock(raw, platform.Kind)
		if len(items) == 0 {
			return apperrors.NewValidationError("no stock items found")
		}

		var added int
		if st.Bool(state.KeyReplace) {
			added, err = d.Ledger.Admin.ReplaceStock(ctx, e.UserID(), name, items)
		} else {
			added, err = d.Ledger.Admin.AddStock(ctx, e.UserID(), name, items)
		}
		if err != nil {
			return err
		}

		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			d.logger().Warn("failed to close upload dialog", slog.Int64("user_id", e.ActorID), slog.Any("error", err))
		}
		return c.Send(d.Tf("admin.stock_added", added, name), d.Keyboard.AdminPlatform(name))
	}
}

// download fetches an uploaded document with a fixed delay between attempts.
func (d *Deps) download(ctx context.Context, doc *telebot.Document) ([]byte, error) {
	attempts := d.UploadAttempts
	if attempts <= 0 {
		attempts = defaultUploadAttempts
	}
	delay := d.UploadDelay
	if delay <= 0 {
		delay = defaultUploadDelay
	}

	policy := apperrors.RetryPolicy{
		MaxRetries: attempts - 1,
		Backoff:    apperrors.ConstantBackoff(delay),
		Retryable:  func(error) bool { return true },
	}

	var data []byte
	err := apperrors.WithRetryPolicy(ctx, policy, func() error {
		rc, err := d.Files.File(&doc.File)
		if err != nil {
			d.logger().Warn("document download failed", slog.String("file_id", doc.FileID), slog.Any("error", err))
			return err
		}
		defer rc.Close()

		data, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		return nil, apperrors.NewExternalAPIError("telegram file download", err)
	}
	return data, nil
}

// NewChannelLinkStateHandler adds a required channel.
func NewChannelLinkStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if _, err := d.dialog(ctx, e); err != nil {
			return err
		}

		if err := d.Ledger.Admin.AddChannel(ctx, e.UserID(), e.Text); err != nil {
			return err
		}
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		channels, err := d.Ledger.Admin.Channels(ctx)
		if err != nil {
			return err
		}
		return c.Send(d.T("admin.channels"), d.Keyboard.Channels(channels))
	}
}

// NewAddAdminStateHandler reads "<user id> [name]" and stores the admin.
func NewAddAdminStateHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireOwner(e); err != nil {
			_ = d.FSM.ClearState(ctx, e.ActorID)
			return err
		}

		fields := strings.Fields(e.Text)
		if len(fields) == 0 {
			return apperrors.NewValidationError("send the user id, optionally followed by a name")
		}
		if _, ok := parseInt64(fields[0]); !ok {
			return apperrors.NewValidationError("user id must be numeric")
		}

		name := strings.Join(fields[1:], " ")
		if err := d.Ledger.Admin.AddAdmin(ctx, e.UserID(), fields[0], name, ""); err != nil {
			return err
		}
		if err := d.FSM.ClearState(ctx, e.ActorID); err != nil {
			return err
		}
		return refreshAdminsMessage(ctx, d, c, fields[0])
	}
}

func refreshAdminsMessage(ctx context.Context, d *Deps, c telebot.Context, added string) error {
	admins, err := d.Ledger.Admin.Admins(ctx)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("%s\n\n%s", d.Tf("admin.admin_added", added), d.T("admin.admins")), d.Keyboard.Admins(admins))
}
