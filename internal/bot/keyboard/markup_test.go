package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
)

func TestInlineKeyboard_EncodesCallbacks(t *testing.T) {
	markup, err := keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.InlineButton{Text: "◀️", Unique: keyboard.ActionUsers, Data: "1"},
			keyboard.InlineButton{Text: "▶️", Unique: keyboard.ActionUsers, Data: "3"},
		).
		AddRow().
		AddRow(keyboard.InlineButton{Text: "Claim", Unique: keyboard.ActionClaim, Data: "Netflix"}).
		Build()
	require.NoError(t, err)

	got := make([][]string, len(markup.InlineKeyboard))
	for i, row := range markup.InlineKeyboard {
		for _, btn := range row {
			assert.Empty(t, btn.Unique)
			got[i] = append(got[i], btn.Data)
		}
	}
	assert.Equal(t, [][]string{
		{keyboard.ActionUsers + ":1", keyboard.ActionUsers + ":3"},
		{keyboard.ActionClaim + ":Netflix"},
	}, got)
}

func TestInlineKeyboard_RejectsOversizedData(t *testing.T) {
	_, err := keyboard.NewInlineKeyboard().
		AddRow(keyboard.InlineButton{Text: "x", Unique: keyboard.ActionPlatform, Data: strings.Repeat("x", keyboard.MaxCallbackBytes)}).
		Build()
	assert.Error(t, err)
}

func TestMainMenuLayout(t *testing.T) {
	labels := []string{
		keyboard.LabelRewards, keyboard.LabelAccount,
		keyboard.LabelReferral, keyboard.LabelLeaderboard,
		keyboard.LabelRedeem, keyboard.LabelTutorial,
		keyboard.LabelReview, keyboard.LabelReport,
	}
	translations := make(map[string]string, len(labels))
	for _, key := range labels {
		translations[key] = strings.ToUpper(key)
	}

	markup := keyboard.MainMenu(&mockTranslator{translations: translations})
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, len(labels)/2)

	for i, row := range markup.ReplyKeyboard {
		require.Len(t, row, 2)
		assert.Equal(t, strings.ToUpper(labels[2*i]), row[0].Text)
		assert.Equal(t, strings.ToUpper(labels[2*i+1]), row[1].Text)
	}
}

func TestMainMenuWithoutTranslator(t *testing.T) {
	markup := keyboard.MainMenu(nil)
	require.NotEmpty(t, markup.ReplyKeyboard)
	assert.Equal(t, keyboard.LabelRewards, markup.ReplyKeyboard[0][0].Text)
}
