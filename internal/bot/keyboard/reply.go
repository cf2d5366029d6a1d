package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/i18n"
)

// Reply keyboard labels are translation keys. The router matches incoming
// text against their translations.
const (
	LabelRewards     = "main_menu.rewards"
	LabelAccount     = "main_menu.account"
	LabelReferral    = "main_menu.referral"
	LabelLeaderboard = "main_menu.leaderboard"
	LabelRedeem      = "main_menu.redeem"
	LabelTutorial    = "main_menu.tutorial"
	LabelReview      = "main_menu.review"
	LabelReport      = "main_menu.report"
)

// mainMenuLayout is two buttons per row.
var mainMenuLayout = [][2]string{
	{LabelRewards, LabelAccount},
	{LabelReferral, LabelLeaderboard},
	{LabelRedeem, LabelTutorial},
	{LabelReview, LabelReport},
}

// MainMenu is the persistent reply keyboard shown in private chats.
func MainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}

	rows := make([]telebot.Row, 0, len(mainMenuLayout))
	for _, pair := range mainMenuLayout {
		rows = append(rows, markup.Row(
			markup.Text(translate(t, pair[0])),
			markup.Text(translate(t, pair[1])),
		))
	}
	markup.Reply(rows...)

	return markup
}

func translate(t i18n.Translator, key string) string {
	if t == nil {
		return key
	}
	return t.T(key)
}
