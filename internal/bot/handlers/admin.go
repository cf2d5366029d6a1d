package handlers

import (
	"context"
	"fmt"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/state"
)

const (
	usersPageSize  = 10
	adminLogLength = 20
)

// NewAdminCommandHandler opens the panel with /admin.
func NewAdminCommandHandler(d *Deps) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		if err := d.requireAdmin(context.Background(), e); err != nil {
			return err
		}
		return c.Send(d.T("admin.panel"), d.Keyboard.AdminPanel())
	}
}

// NewAdminSectionHandler routes "adm:<section>" callbacks.
func NewAdminSectionHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		switch callbackData(c) {
		case keyboard.AdminPlatforms:
			platforms, err := d.Ledger.Admin.ListPlatforms(ctx)
			if err != nil {
				return err
			}
			return c.EditOrSend(d.T("admin.platforms"), d.Keyboard.AdminPlatforms(platforms))
		case keyboard.AdminChannels:
			channels, err := d.Ledger.Admin.Channels(ctx)
			if err != nil {
				return err
			}
			return c.EditOrSend(d.T("admin.channels"), d.Keyboard.Channels(channels))
		case keyboard.AdminAdmins:
			admins, err := d.Ledger.Admin.Admins(ctx)
			if err != nil {
				return err
			}
			return c.EditOrSend(d.T("admin.admins"), d.Keyboard.Admins(admins))
		case keyboard.AdminLog:
			return showAdminLog(ctx, d, c)
		default:
			return c.EditOrSend(d.T("admin.panel"), d.Keyboard.AdminPanel())
		}
	}
}

func showAdminLog(ctx context.Context, d *Deps, c telebot.Context) error {
	entries, err := d.Ledger.Admin.AdminLog(ctx, adminLogLength)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(d.T("admin.log_title"))
	b.WriteString("\n\n")
	if len(entries) == 0 {
		b.WriteString(d.T("admin.log_empty"))
	}
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s %s: %s\n", entry.CreatedAt.Format("2006-01-02 15:04"), entry.AdminID, entry.Action)
	}
	return c.EditOrSend(b.String(), d.Keyboard.AdminPanel())
}

// NewAdminPlatformHandler shows the management view of one platform.
func NewAdminPlatformHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		platform, price, err := d.Ledger.Admin.Platform(ctx, callbackData(c))
		if err != nil {
			return err
		}
		text := d.Tf("admin.platform", platform.Name, d.T("kind."+string(platform.Kind)), price, platform.Stock)
		return c.EditOrSend(text, d.Keyboard.AdminPlatform(platform.Name))
	}
}

// NewAdminPromptHandler starts an admin dialog: the callback payload is
// stored under KeyPlatform (or KeyPlatformKind for new platforms) and the
// next message is handled by the state's handler.
func NewAdminPromptHandler(d *Deps, next state.State, promptKey string) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		data := map[string]interface{}{}
		payload := callbackData(c)
		switch next {
		case state.StateAdminPlatformName:
			kind := domain.PlatformKind(payload)
			if !kind.Valid() {
				kind = domain.PlatformAccount
			}
			data[state.KeyPlatformKind] = string(kind)
		case state.StateAdminStockUpload:
			data[state.KeyPlatform] = payload
			if cb := c.Callback(); cb != nil {
				unique, _, _ := keyboard.DecodeCallback(cb.Data)
				data[state.KeyReplace] = unique == keyboard.ActionStockReplace
			}
		case state.StateAdminPlatformRename, state.StateAdminPlatformPrice:
			data[state.KeyPlatform] = payload
		}

		if err := d.FSM.TransitionTo(ctx, e.ActorID, next, data); err != nil {
			return err
		}
		prompt := d.T(promptKey)
		if payload != "" && strings.Contains(prompt, "%s") {
			prompt = d.Tf(promptKey, payload)
		}
		return c.Send(prompt, d.Keyboard.Cancel())
	}
}

// NewPlatformRemoveHandler deletes a platform and its stock.
func NewPlatformRemoveHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		name := callbackData(c)
		if err := d.Ledger.Admin.RemovePlatform(ctx, e.UserID(), name); err != nil {
			return err
		}
		platforms, err := d.Ledger.Admin.ListPlatforms(ctx)
		if err != nil {
			return err
		}
		return c.EditOrSend(d.Tf("admin.platform_removed", name), d.Keyboard.AdminPlatforms(platforms))
	}
}

// NewChannelRemoveHandler drops a required channel by id.
func NewChannelRemoveHandler(d *Deps) CallbackHandler {
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
		channels, err := d.Ledger.Admin.Channels(ctx)
		if err != nil {
			return err
		}
		for _, ch := range channels {
			if ch.ID != id {
				continue
			}
			if err := d.Ledger.Admin.RemoveChannel(ctx, e.UserID(), ch.Link); err != nil {
				return err
			}
			break
		}

		channels, err = d.Ledger.Admin.Channels(ctx)
		if err != nil {
			return err
		}
		return c.EditOrSend(d.T("admin.channels"), d.Keyboard.Channels(channels))
	}
}

// NewAdminRemoveHandler deletes a stored admin. Owners only.
func NewAdminRemoveHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireOwner(e); err != nil {
			return err
		}

		if err := d.Ledger.Admin.RemoveAdmin(ctx, e.UserID(), callbackData(c)); err != nil {
			return err
		}
		return refreshAdmins(ctx, d, c)
	}
}

// NewAdminBanHandler toggles the banned flag of a stored admin. Owners only.
func NewAdminBanHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireOwner(e); err != nil {
			return err
		}

		if _, err := d.Ledger.Admin.ToggleAdminBan(ctx, e.UserID(), callbackData(c)); err != nil {
			return err
		}
		return refreshAdmins(ctx, d, c)
	}
}

func refreshAdmins(ctx context.Context, d *Deps, c telebot.Context) error {
	admins, err := d.Ledger.Admin.Admins(ctx)
	if err != nil {
		return err
	}
	return c.EditOrSend(d.T("admin.admins"), d.Keyboard.Admins(admins))
}

// NewUsersHandler pages through registered users.
func NewUsersHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		page := 1
		if p, ok := parseInt64(callbackData(c)); ok && p > 0 {
			page = int(p)
		}
		return showUsers(ctx, d, c, page)
	}
}

func showUsers(ctx context.Context, d *Deps, c telebot.Context, page int) error {
	users, total, err := d.Ledger.Admin.Users(ctx, usersPageSize, (page-1)*usersPageSize)
	if err != nil {
		return err
	}
	totalPages := keyboard.PageCount(int(total), usersPageSize)
	return c.EditOrSend(d.Tf("admin.users", total), d.Keyboard.Users(users, page, totalPages))
}

// NewUserBanHandler bans or unbans the user in the callback payload.
func NewUserBanHandler(d *Deps, ban bool) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()
		if err := d.requireAdmin(ctx, e); err != nil {
			return err
		}

		userID := callbackData(c)
		var err error
		if ban {
			err = d.Ledger.Admin.BanUser(ctx, e.UserID(), userID)
		} else {
			err = d.Ledger.Admin.UnbanUser(ctx, e.UserID(), userID)
		}
		if err != nil {
			return err
		}
		return showUsers(ctx, d, c, 1)
	}
}
