package ledger

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

var (
	blankLine    = regexp.MustCompile(`\n[ \t]*\n`)
	cookieHeader = regexp.MustCompile(`(?i)^type\s*[:=]\s*(.+)$`)
)

// DecodeUpload converts an uploaded stock file to text, reading invalid
// UTF-8 as Latin-1.
func DecodeUpload(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// ParseStock splits an upload into items. Blank-line separated blocks are
// one item each when present, otherwise every non-empty line is an item.
// Cookie platforms read an optional "type: <name>" first line per block.
func ParseStock(raw string, kind domain.PlatformKind) []domain.StockItem {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	var chunks []string
	if blankLine.MatchString(text) {
		chunks = blankLine.Split(text, -1)
	} else {
		chunks = strings.Split(text, "\n")
	}

	items := make([]domain.StockItem, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if kind == domain.PlatformCookie {
			if item := parseCookie(chunk); item.Payload != "" {
				items = append(items, item)
			}
			continue
		}
		items = append(items, domain.StockItem{Kind: domain.ItemPlain, Payload: chunk})
	}
	return items
}

func parseCookie(block string) domain.StockItem {
	item := domain.StockItem{Kind: domain.ItemCookie, CookieType: "cookie", Payload: block}

	first, rest, _ := strings.Cut(block, "\n")
	if m := cookieHeader.FindStringSubmatch(strings.TrimSpace(first)); m != nil {
		item.CookieType = strings.TrimSpace(m[1])
		item.Payload = strings.TrimSpace(rest)
	}
	return item
}
