package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	"github.com/Proton-105/rewards-bot/internal/domain"
)

func callbacks(markup *telebot.ReplyMarkup) []string {
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.Data)
		}
	}
	return out
}

func TestBuilder_MainMenuAdminEntry(t *testing.T) {
	b := keyboard.NewBuilder(nil, nil)

	assert.NotContains(t, callbacks(b.MainMenu(false)), "adm:home")
	assert.Contains(t, callbacks(b.MainMenu(true)), "adm:home")
}

func TestBuilder_Platforms(t *testing.T) {
	b := keyboard.NewBuilder(nil, nil)
	markup := b.Platforms([]domain.Platform{{Name: "Netflix", Stock: 2}, {Name: "Spotify"}})

	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "Netflix (2)", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "plat:Netflix", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "menu:main", markup.InlineKeyboard[2][0].Data)
}

func TestBuilder_UsersPaginates(t *testing.T) {
	b := keyboard.NewBuilder(nil, nil)
	markup := b.Users([]domain.User{{ID: "1", Name: "a"}, {ID: "2", Banned: true}}, 1, 3)

	data := callbacks(markup)
	assert.Contains(t, data, "uban:1")
	assert.Contains(t, data, "uunban:2")
	assert.Contains(t, data, "users:2")
}

func TestBuilder_VerifyLinks(t *testing.T) {
	b := keyboard.NewBuilder(nil, nil)
	markup := b.Verify([]string{"@news", "https://t.me/+invite"})

	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "https://t.me/news", markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://t.me/+invite", markup.InlineKeyboard[1][0].URL)
	assert.Equal(t, "verify", markup.InlineKeyboard[2][0].Data)
}
