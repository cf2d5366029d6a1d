package handlers

import (
	"context"
	"fmt"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/internal/state"
)

// NewMenuHandler routes "menu:<section>" callbacks.
func NewMenuHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		return NewScreenHandler(d, callbackData(c))(c)
	}
}

// NewScreenHandler renders one menu section. It backs the inline menu,
// the reply keyboard labels and the matching slash commands.
func NewScreenHandler(d *Deps, section string) Handler {
	return func(c telebot.Context) error {
		e := NewEvent(c)
		ctx := context.Background()

		user := CurrentUser(c)
		if user == nil {
			return ledger.ErrUserNotFound
		}
		if user.Banned {
			return ledger.ErrUserBanned
		}

		if section != keyboard.MenuTutorial {
			ok, err := d.ensureVerified(ctx, c, e)
			if err != nil || !ok {
				return err
			}
		}

		switch section {
		case keyboard.MenuRewards:
			return showRewards(ctx, d, c)
		case keyboard.MenuAccount:
			return showAccount(ctx, d, c, e)
		case keyboard.MenuReferral:
			return showReferral(ctx, d, c, e)
		case keyboard.MenuLeaderboard:
			return showLeaderboard(ctx, d, c, domain.LeaderboardPoints)
		case keyboard.MenuRedeem:
			if err := d.FSM.TransitionTo(ctx, e.ActorID, state.StateAwaitingRedeemCode, nil); err != nil {
				return err
			}
			return c.Send(d.T("redeem.prompt"), d.Keyboard.Cancel())
		case keyboard.MenuTutorial:
			return c.EditOrSend(d.T("tutorial.text"), d.Keyboard.BackToMenu())
		default:
			return c.EditOrSend(d.T("menu.main"), d.Keyboard.MainMenu(d.isAdmin(ctx, e)))
		}
	}
}

func showRewards(ctx context.Context, d *Deps, c telebot.Context) error {
	platforms, err := d.Ledger.Admin.ListPlatforms(ctx)
	if err != nil {
		return err
	}
	if len(platforms) == 0 {
		return c.EditOrSend(d.T("rewards.empty"), d.Keyboard.BackToMenu())
	}

	cost, err := d.Ledger.Registry.ClaimCost(ctx)
	if err != nil {
		return err
	}
	return c.EditOrSend(d.Tf("rewards.list", cost), d.Keyboard.Platforms(platforms))
}

func showAccount(ctx context.Context, d *Deps, c telebot.Context, e Event) error {
	user, err := d.Ledger.Accounts.User(ctx, e.UserID())
	if err != nil {
		return err
	}

	name := user.Name
	if name == "" {
		name = e.DisplayName()
	}
	text := d.Tf("account.info",
		name,
		user.ID,
		user.Points,
		user.Referrals,
		user.JoinDate.Format("2006-01-02"),
	)
	return c.EditOrSend(text, d.Keyboard.BackToMenu())
}

func showReferral(ctx context.Context, d *Deps, c telebot.Context, e Event) error {
	user, err := d.Ledger.Accounts.User(ctx, e.UserID())
	if err != nil {
		return err
	}
	bonus, err := d.Ledger.Registry.ReferralBonus(ctx)
	if err != nil {
		return err
	}

	link := ledger.ReferralLink(d.BotUsername, e.UserID())
	return c.EditOrSend(d.Tf("referral.info", link, bonus, user.Referrals), d.Keyboard.BackToMenu())
}

func showLeaderboard(ctx context.Context, d *Deps, c telebot.Context, kind domain.LeaderboardKind) error {
	entries, err := d.Ledger.Leaderboard(ctx, kind, 0)
	if err != nil {
		return err
	}

	titleKey, unitKey := "leaderboard.points_title", "leaderboard.points_unit"
	if kind == domain.LeaderboardReferrals {
		titleKey, unitKey = "leaderboard.referrals_title", "leaderboard.referrals_unit"
	}

	var b strings.Builder
	b.WriteString(d.T(titleKey))
	b.WriteString("\n\n")
	if len(entries) == 0 {
		b.WriteString(d.T("leaderboard.empty"))
	}
	for i, entry := range entries {
		name := entry.Name
		if name == "" {
			name = entry.UserID
		}
		fmt.Fprintf(&b, "%d. %s: %d %s\n", i+1, name, entry.Metric, d.T(unitKey))
	}

	return c.EditOrSend(b.String(), d.Keyboard.Leaderboard())
}

// NewLeaderboardHandler switches between the rankings.
func NewLeaderboardHandler(d *Deps) CallbackHandler {
	return func(c telebot.Context) error {
		kind := domain.LeaderboardKind(callbackData(c))
		if kind != domain.LeaderboardReferrals {
			kind = domain.LeaderboardPoints
		}
		return showLeaderboard(context.Background(), d, c, kind)
	}
}
