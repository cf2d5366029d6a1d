package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
)

func TestEncodeCallback(t *testing.T) {
	got, err := keyboard.EncodeCallback(keyboard.ActionClaim, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, "claim:Netflix", got)

	got, err = keyboard.EncodeCallback(keyboard.ActionReview, "")
	require.NoError(t, err)
	assert.Equal(t, "review", got)

	_, err = keyboard.EncodeCallback("", "x")
	assert.Error(t, err)

	_, err = keyboard.EncodeCallback("a:b", "")
	assert.Error(t, err)

	_, err = keyboard.EncodeCallback(keyboard.ActionClaim, strings.Repeat("x", keyboard.MaxCallbackBytes))
	assert.Error(t, err)
}

func TestDecodeCallback(t *testing.T) {
	cases := []struct {
		in      string
		action  string
		payload string
	}{
		{in: "users:3", action: "users", payload: "3"},
		{in: "verify", action: "verify"},
		{in: "plat:HBO: Max", action: "plat", payload: "HBO: Max"},
		{in: "\fclaim:Netflix", action: "claim", payload: "Netflix"},
	}
	for _, tc := range cases {
		action, payload, err := keyboard.DecodeCallback(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.action, action, tc.in)
		assert.Equal(t, tc.payload, payload, tc.in)
	}

	_, _, err := keyboard.DecodeCallback("")
	assert.ErrorIs(t, err, keyboard.ErrEmptyCallback)
}

func TestCallbackRoundTripKeepsLongestPlatformName(t *testing.T) {
	name := strings.Repeat("n", 40)
	data, err := keyboard.EncodeCallback(keyboard.ActionPlatformRename, name)
	require.NoError(t, err)

	action, payload, err := keyboard.DecodeCallback(data)
	require.NoError(t, err)
	assert.Equal(t, keyboard.ActionPlatformRename, action)
	assert.Equal(t, name, payload)
}
