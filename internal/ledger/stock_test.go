package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

func TestParseStock(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		kind domain.PlatformKind
		want []domain.StockItem
	}{
		{
			name: "one account per line",
			raw:  "a@x.com:pw1\r\n  b@x.com:pw2  \n",
			kind: domain.PlatformAccount,
			want: []domain.StockItem{
				{Kind: domain.ItemPlain, Payload: "a@x.com:pw1"},
				{Kind: domain.ItemPlain, Payload: "b@x.com:pw2"},
			},
		},
		{
			name: "blank lines separate multi-line blocks",
			raw:  "user: a\npass: 1\n\nuser: b\npass: 2",
			kind: domain.PlatformAccount,
			want: []domain.StockItem{
				{Kind: domain.ItemPlain, Payload: "user: a\npass: 1"},
				{Kind: domain.ItemPlain, Payload: "user: b\npass: 2"},
			},
		},
		{
			name: "cookie records with optional type header",
			raw:  "type: netscape\n.site\tTRUE\t/\n\n.other\tFALSE\t/",
			kind: domain.PlatformCookie,
			want: []domain.StockItem{
				{Kind: domain.ItemCookie, CookieType: "netscape", Payload: ".site\tTRUE\t/"},
				{Kind: domain.ItemCookie, CookieType: "cookie", Payload: ".other\tFALSE\t/"},
			},
		},
		{
			name: "empty upload",
			raw:  " \n\n ",
			kind: domain.PlatformAccount,
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseStock(tc.raw, tc.kind)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeUpload_FallsBackToLatin1(t *testing.T) {
	assert.Equal(t, "plain", DecodeUpload([]byte("plain")))
	assert.Equal(t, "café", DecodeUpload([]byte{'c', 'a', 'f', 0xe9}))
}

func TestNewKeyCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewKeyCode(domain.KeyNormal)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(code, "NKEY-"))
		body := strings.TrimPrefix(code, "NKEY-")
		require.Len(t, body, 10)
		for _, r := range body {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q", r)
		}
		assert.False(t, seen[code])
		seen[code] = true
	}

	code, err := NewKeyCode(domain.KeyPremium)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "PKEY-"))
}

func TestParseReferralPayload(t *testing.T) {
	assert.Equal(t, "12345", ParseReferralPayload("ref_12345"))
	assert.Equal(t, "", ParseReferralPayload("ref_abc"))
	assert.Equal(t, "", ParseReferralPayload("promo"))
	assert.Equal(t, "https://t.me/rewardsbot?start=ref_7", ReferralLink("rewardsbot", "7"))
}
