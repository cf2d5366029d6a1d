package middleware

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/idempotency"
	"github.com/Proton-105/rewards-bot/internal/ratelimit"
	"github.com/Proton-105/rewards-bot/pkg/config"
)

type updateContext struct {
	telebot.Context

	update   telebot.Update
	sender   *telebot.User
	message  *telebot.Message
	callback *telebot.Callback
}

func (c *updateContext) Update() telebot.Update      { return c.update }
func (c *updateContext) Sender() *telebot.User       { return c.sender }
func (c *updateContext) Message() *telebot.Message   { return c.message }
func (c *updateContext) Callback() *telebot.Callback { return c.callback }
func (c *updateContext) Text() string {
	if c.message == nil {
		return ""
	}
	return c.message.Text
}

func textUpdate(id int, userID int64, text string) *updateContext {
	user := &telebot.User{ID: userID}
	msg := &telebot.Message{ID: id, Text: text, Sender: user, Chat: &telebot.Chat{ID: userID}}
	return &updateContext{update: telebot.Update{ID: id, Message: msg}, sender: user, message: msg}
}

func callbackUpdate(id int, userID int64, data string) *updateContext {
	user := &telebot.User{ID: userID}
	return &updateContext{
		update:   telebot.Update{ID: id},
		sender:   user,
		callback: &telebot.Callback{ID: "cb", Data: data, Sender: user},
	}
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCommandName(t *testing.T) {
	claim, err := keyboard.EncodeCallback(keyboard.ActionClaim, "Netflix")
	require.NoError(t, err)

	assert.Equal(t, "/start", CommandName(textUpdate(1, 1, "/Start@rewards_bot ref_9")))
	assert.Equal(t, "text", CommandName(textUpdate(1, 1, "hello")))
	assert.Equal(t, keyboard.ActionClaim, CommandName(callbackUpdate(1, 1, claim)))
	assert.Equal(t, "unknown", CommandName(callbackUpdate(1, 1, "")))
	assert.Equal(t, "unknown", CommandName(nil))

	doc := textUpdate(1, 1, "")
	doc.message.Document = &telebot.Document{FileName: "stock.txt"}
	assert.Equal(t, "document", CommandName(doc))
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "ok", outcomeLabel(nil))
	assert.Equal(t, "rejected", outcomeLabel(apperrors.NewValidationError("bad")))
	assert.Equal(t, "error", outcomeLabel(assert.AnError))
}

func TestRateLimit_PerCommandBucket(t *testing.T) {
	rules, err := ratelimit.NewRules(config.RateLimitConfig{
		Enabled:   true,
		PerUser:   config.RateLimitRule{Limit: 100, Window: "1m"},
		Commands:  config.CommandLimits{Redeem: config.RateLimitRule{Limit: 2, Window: "1m"}},
		Whitelist: []int64{9},
	})
	require.NoError(t, err)

	mw := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(silentLogger()), rules, silentLogger())
	calls := 0
	h := mw.Handle(func(telebot.Context) error { calls++; return nil })

	require.NoError(t, h(textUpdate(1, 5, "/redeem")))
	require.NoError(t, h(textUpdate(2, 5, "/redeem")))

	err = h(textUpdate(3, 5, "/redeem"))
	assert.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))

	require.NoError(t, h(textUpdate(4, 5, "hello")), "other actions use only the per-user bucket")
	require.NoError(t, h(textUpdate(5, 6, "/redeem")), "buckets are per user")
	for i := 0; i < 5; i++ {
		require.NoError(t, h(textUpdate(10+i, 9, "/redeem")), "whitelisted users are never limited")
	}
	assert.Equal(t, 9, calls)
}

func TestRateLimit_Disabled(t *testing.T) {
	rules, err := ratelimit.NewRules(config.RateLimitConfig{
		PerUser: config.RateLimitRule{Limit: 1, Window: "1m"},
	})
	require.NoError(t, err)

	h := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(nil), rules, nil).Handle(func(telebot.Context) error { return nil })
	for i := 0; i < 3; i++ {
		assert.NoError(t, h(textUpdate(i+1, 5, "hi")))
	}
}

func TestIdempotency_DropsRedeliveredUpdates(t *testing.T) {
	guard := idempotency.NewManager(idempotency.NewMemoryStore(), silentLogger())
	calls := 0
	fail := true
	h := Idempotency(guard, silentLogger())(func(telebot.Context) error {
		calls++
		if fail {
			fail = false
			return assert.AnError
		}
		return nil
	})

	assert.ErrorIs(t, h(textUpdate(7, 1, "/claim")), assert.AnError)
	require.NoError(t, h(textUpdate(7, 1, "/claim")), "failed update is retried")
	require.NoError(t, h(textUpdate(7, 1, "/claim")), "completed update is dropped")
	require.NoError(t, h(textUpdate(8, 1, "/claim")))
	assert.Equal(t, 3, calls)
}

func TestIdempotency_NilManagerPassesThrough(t *testing.T) {
	calls := 0
	h := Idempotency(nil, nil)(func(telebot.Context) error { calls++; return nil })
	require.NoError(t, h(textUpdate(1, 1, "x")))
	require.NoError(t, h(textUpdate(1, 1, "x")))
	assert.Equal(t, 2, calls)
}
