package keyboard

import (
	"fmt"
	"strconv"

	"github.com/Proton-105/rewards-bot/internal/i18n"
)

// PageCount is the number of pages needed for total items.
func PageCount(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// PageRow renders the navigation row of a paged list. Every button
// carries the page it opens, the middle one reloads the current page.
func PageRow(t i18n.Translator, action string, page, totalPages int) []InlineButton {
	totalPages = max(totalPages, 1)
	page = min(max(page, 1), totalPages)

	row := make([]InlineButton, 0, 3)
	if page > 1 {
		row = append(row, pageButton(t, "pagination.prev", "◀️", action, page-1))
	}

	position := fmt.Sprintf("%d/%d", page, totalPages)
	if t != nil {
		if format := t.T("pagination.page"); format != "pagination.page" {
			position = fmt.Sprintf(format, page, totalPages)
		}
	}
	row = append(row, InlineButton{Text: position, Unique: action, Data: strconv.Itoa(page)})

	if page < totalPages {
		row = append(row, pageButton(t, "pagination.next", "▶️", action, page+1))
	}
	return row
}

func pageButton(t i18n.Translator, key, fallback, action string, page int) InlineButton {
	text := fallback
	if t != nil {
		if v := t.T(key); v != key {
			text = v
		}
	}
	return InlineButton{Text: text, Unique: action, Data: strconv.Itoa(page)}
}
