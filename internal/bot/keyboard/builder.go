package keyboard

import (
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/i18n"
)

// Callback actions. Payloads follow the separator, see EncodeCallback.
const (
	ActionMenu        = "menu"
	ActionPlatform    = "plat"
	ActionClaim       = "claim"
	ActionLeaderboard = "lb"
	ActionReview      = "review"
	ActionReport      = "report"
	ActionVerify      = "verify"
	ActionCancel      = "cancel"

	ActionAdmin          = "adm"
	ActionAdminPlatform  = "admp"
	ActionPlatformAdd    = "padd"
	ActionPlatformRemove = "prm"
	ActionPlatformRename = "prn"
	ActionPlatformPrice  = "ppr"
	ActionStockAdd       = "sadd"
	ActionStockReplace   = "srep"
	ActionChannelAdd     = "chadd"
	ActionChannelRemove  = "chrm"
	ActionAdminAdd       = "aadd"
	ActionAdminRemove    = "arm"
	ActionAdminBan       = "aban"
	ActionUsers          = "users"
	ActionUserBan        = "uban"
	ActionUserUnban      = "uunban"
	ActionReportClaim    = "rclaim"
	ActionReportClose    = "rclose"
)

// Menu sections reachable through ActionMenu.
const (
	MenuMain        = "main"
	MenuRewards     = "rewards"
	MenuAccount     = "account"
	MenuReferral    = "referral"
	MenuLeaderboard = "leaderboard"
	MenuRedeem      = "redeem"
	MenuTutorial    = "tutorial"
)

// Admin panel sections reachable through ActionAdmin.
const (
	AdminHome      = "home"
	AdminPlatforms = "platforms"
	AdminChannels  = "channels"
	AdminAdmins    = "admins"
	AdminLog       = "log"
)

// Builder creates the inline keyboards of every screen.
type Builder struct {
	t   i18n.Translator
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(t i18n.Translator, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{t: t, log: log}
}

func (b *Builder) label(key string) string {
	return translate(b.t, key)
}

func (b *Builder) button(key, action, data string) InlineButton {
	return InlineButton{Text: b.label(key), Unique: action, Data: data}
}

func (b *Builder) build(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build inline keyboard", slog.Any("error", err))
		return &telebot.ReplyMarkup{}
	}
	return markup
}

func (b *Builder) back(action, data string) InlineButton {
	return b.button("buttons.back", action, data)
}

// MainMenu builds the idle menu. Admins get an extra panel entry.
func (b *Builder) MainMenu(isAdmin bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().
		AddRow(b.button("buttons.rewards", ActionMenu, MenuRewards), b.button("buttons.account", ActionMenu, MenuAccount)).
		AddRow(b.button("buttons.referral", ActionMenu, MenuReferral), b.button("buttons.leaderboard", ActionMenu, MenuLeaderboard)).
		AddRow(b.button("buttons.redeem", ActionMenu, MenuRedeem), b.button("buttons.tutorial", ActionMenu, MenuTutorial)).
		AddRow(b.button("buttons.review", ActionReview, ""), b.button("buttons.report", ActionReport, ""))
	if isAdmin {
		kb.AddRow(b.button("buttons.admin", ActionAdmin, AdminHome))
	}
	return b.build(kb)
}

// Platforms lists claimable platforms with their stock.
func (b *Builder) Platforms(platforms []domain.Platform) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, p := range platforms {
		kb.AddRow(InlineButton{
			Text:   fmt.Sprintf("%s (%d)", p.Name, p.Stock),
			Unique: ActionPlatform,
			Data:   p.Name,
		})
	}
	kb.AddRow(b.back(ActionMenu, MenuMain))
	return b.build(kb)
}

// PlatformDetail offers a claim for one platform.
func (b *Builder) PlatformDetail(name string) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.button("buttons.claim", ActionClaim, name)).
		AddRow(b.back(ActionMenu, MenuRewards)))
}

// Leaderboard toggles between the two rankings.
func (b *Builder) Leaderboard() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(
			b.button("buttons.top_points", ActionLeaderboard, string(domain.LeaderboardPoints)),
			b.button("buttons.top_referrals", ActionLeaderboard, string(domain.LeaderboardReferrals)),
		).
		AddRow(b.back(ActionMenu, MenuMain)))
}

// BackToMenu is the single back button under informational screens.
func (b *Builder) BackToMenu() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(b.back(ActionMenu, MenuMain)))
}

// Cancel aborts the current dialog.
func (b *Builder) Cancel() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(b.button("buttons.cancel", ActionCancel, "")))
}

// Verify asks the user to join the channels and confirm.
func (b *Builder) Verify(links []string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([][]telebot.InlineButton, 0, len(links)+1)
	for _, link := range links {
		rows = append(rows, []telebot.InlineButton{{Text: link, URL: ChannelURL(link)}})
	}
	data, _ := EncodeCallback(ActionVerify, "")
	rows = append(rows, []telebot.InlineButton{{Text: b.label("buttons.verify"), Data: data}})
	markup.InlineKeyboard = rows
	return markup
}

// ChannelURL turns an @handle into a t.me link and leaves URLs untouched.
func ChannelURL(link string) string {
	if len(link) > 1 && link[0] == '@' {
		return "https://t.me/" + link[1:]
	}
	return link
}

// AdminPanel is the root of the administrative surface.
func (b *Builder) AdminPanel() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.button("buttons.admin_platforms", ActionAdmin, AdminPlatforms)).
		AddRow(
			b.button("buttons.add_account_platform", ActionPlatformAdd, string(domain.PlatformAccount)),
			b.button("buttons.add_cookie_platform", ActionPlatformAdd, string(domain.PlatformCookie)),
		).
		AddRow(b.button("buttons.admin_channels", ActionAdmin, AdminChannels), b.button("buttons.admin_admins", ActionAdmin, AdminAdmins)).
		AddRow(b.button("buttons.admin_users", ActionUsers, "1"), b.button("buttons.admin_log", ActionAdmin, AdminLog)).
		AddRow(b.back(ActionMenu, MenuMain)))
}

// AdminPlatforms lists platforms for management.
func (b *Builder) AdminPlatforms(platforms []domain.Platform) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, p := range platforms {
		kb.AddRow(InlineButton{
			Text:   fmt.Sprintf("%s [%s] (%d)", p.Name, p.Kind, p.Stock),
			Unique: ActionAdminPlatform,
			Data:   p.Name,
		})
	}
	kb.AddRow(b.back(ActionAdmin, AdminHome))
	return b.build(kb)
}

// AdminPlatform holds the actions on one platform.
func (b *Builder) AdminPlatform(name string) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(b.button("buttons.stock_add", ActionStockAdd, name), b.button("buttons.stock_replace", ActionStockReplace, name)).
		AddRow(b.button("buttons.rename", ActionPlatformRename, name), b.button("buttons.price", ActionPlatformPrice, name)).
		AddRow(b.button("buttons.remove", ActionPlatformRemove, name)).
		AddRow(b.back(ActionAdmin, AdminPlatforms)))
}

// Channels lists required channels with remove buttons.
func (b *Builder) Channels(channels []domain.Channel) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, ch := range channels {
		kb.AddRow(InlineButton{
			Text:   "❌ " + ch.Link,
			Unique: ActionChannelRemove,
			Data:   strconv.FormatInt(ch.ID, 10),
		})
	}
	kb.AddRow(b.button("buttons.channel_add", ActionChannelAdd, ""))
	kb.AddRow(b.back(ActionAdmin, AdminHome))
	return b.build(kb)
}

// Admins lists stored admins with ban toggle and removal.
func (b *Builder) Admins(admins []domain.Admin) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, a := range admins {
		toggle := "buttons.ban"
		if a.Banned {
			toggle = "buttons.unban"
		}
		name := a.Name
		if name == "" {
			name = a.UserID
		}
		kb.AddRow(
			InlineButton{Text: fmt.Sprintf("%s: %s", b.label(toggle), name), Unique: ActionAdminBan, Data: a.UserID},
			InlineButton{Text: "❌", Unique: ActionAdminRemove, Data: a.UserID},
		)
	}
	kb.AddRow(b.button("buttons.admin_add", ActionAdminAdd, ""))
	kb.AddRow(b.back(ActionAdmin, AdminHome))
	return b.build(kb)
}

// Users renders one page of users with ban controls.
func (b *Builder) Users(users []domain.User, page, totalPages int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = u.ID
		}
		if u.Banned {
			kb.AddRow(InlineButton{Text: fmt.Sprintf("%s: %s", b.label("buttons.unban"), name), Unique: ActionUserUnban, Data: u.ID})
		} else {
			kb.AddRow(InlineButton{Text: fmt.Sprintf("%s: %s", b.label("buttons.ban"), name), Unique: ActionUserBan, Data: u.ID})
		}
	}
	if totalPages > 1 {
		kb.AddRow(PageRow(b.t, ActionUsers, page, totalPages)...)
	}
	kb.AddRow(b.back(ActionAdmin, AdminHome))
	return b.build(kb)
}

// ReportActions is attached to reports forwarded to owners.
func (b *Builder) ReportActions(id int64) *telebot.ReplyMarkup {
	data := strconv.FormatInt(id, 10)
	return b.build(NewInlineKeyboard().AddRow(
		b.button("buttons.report_claim", ActionReportClaim, data),
		b.button("buttons.report_close", ActionReportClose, data),
	))
}
