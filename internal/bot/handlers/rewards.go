package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/ledger"
)

// NewPlatformHandler shows one platform with its price and stock.
func NewPlatformHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		ctx := context.Background()
		platform, price, err := d.Ledger.Admin.Platform(ctx, callbackData(c))
		if err != nil {
			return err
		}

		text := d.Tf("rewards.detail", platform.Name, d.T("kind."+string(platform.Kind)), price, platform.Stock)
		return c.EditOrSend(text, d.Keyboard.PlatformDetail(platform.Name))
	}
}

// NewClaimHandler spends points on one item of the platform named in the
// callback. The item always goes to the user's private chat.
func NewClaimHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		user := CurrentUser(c)
		if user != nil && user.Banned {
			return ledger.ErrUserBanned
		}

		ok, err := d.ensureVerified(ctx, c, e)
		if err != nil || !ok {
			return err
		}

		result, err := d.Ledger.ClaimStockItem(ctx, e.UserID(), callbackData(c))
		if err != nil {
			return err
		}

		delivery := d.Tf("claim.delivery", result.Platform, formatItem(d, result.Item), result.Price, result.NewBalance)
		if e.Private {
			return c.Send(delivery, telebot.NoPreview)
		}

		if _, err := d.Sender.Send(e.DM(), delivery, telebot.NoPreview); err != nil {
			d.logger().Error("claimed item could not be delivered",
				slog.Int64("user_id", e.ActorID),
				slog.String("platform", result.Platform),
				slog.Int64("item_id", result.Item.ID),
				slog.Any("error", err),
			)
			return c.Send(d.Tf("claim.dm_failed", d.BotUsername))
		}
		return c.Send(d.Tf("claim.sent_to_dm", e.DisplayName()))
	}
}

func formatItem(d *Deps, item domain.StockItem) string {
	if item.Kind == domain.ItemCookie && item.CookieType != "" {
		return fmt.Sprintf("%s\n%s", d.Tf("claim.cookie_type", item.CookieType), item.Payload)
	}
	return item.Payload
}
