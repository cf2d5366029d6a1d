package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// InlineButton is a callback button before encoding. URL buttons are
// rendered directly by the Builder.
type InlineButton struct {
	Text   string
	Unique string // callback action
	Data   string // callback payload
}

// InlineKeyboardBuilder collects button rows for one message.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{}
}

// AddRow appends a row. Empty rows are skipped.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, append([]InlineButton(nil), buttons...))
	}
	return b
}

// Build encodes every button with EncodeCallback. The telebot Unique field
// stays empty so the router receives the data unchanged.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	markup := &telebot.ReplyMarkup{InlineKeyboard: make([][]telebot.InlineButton, len(b.rows))}
	for i, row := range b.rows {
		markup.InlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			data, err := EncodeCallback(btn.Unique, btn.Data)
			if err != nil {
				return nil, err
			}
			markup.InlineKeyboard[i][j] = telebot.InlineButton{Text: btn.Text, Data: data}
		}
	}
	return markup, nil
}
