package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/pkg/config"
)

func TestRules(t *testing.T) {
	rules, err := NewRules(config.RateLimitConfig{
		Enabled: true,
		PerUser: config.RateLimitRule{Limit: 30, Window: "1m"},
		Commands: config.CommandLimits{
			Claim:  config.RateLimitRule{Limit: 3, Window: "1m"},
			Redeem: config.RateLimitRule{Limit: 5, Window: "10m"},
		},
		Whitelist: []int64{42},
	})
	require.NoError(t, err)

	assert.True(t, rules.Enabled())
	assert.True(t, rules.Exempt(42))
	assert.False(t, rules.Exempt(7))

	assert.Equal(t, Rule{Limit: 3, Window: time.Minute}, rules.Command(CommandClaim))
	assert.Equal(t, Rule{Limit: 5, Window: 10 * time.Minute}, rules.Command(CommandRedeem))
	assert.False(t, rules.Command(CommandReport).Active())
	assert.False(t, rules.Command("balance").Active())
	assert.False(t, rules.Global().Active())
}

func TestRulesUpdate(t *testing.T) {
	rules, err := NewRules(config.RateLimitConfig{})
	require.NoError(t, err)
	assert.False(t, rules.Enabled())

	require.NoError(t, rules.Update(config.RateLimitConfig{
		Enabled: true,
		PerUser: config.RateLimitRule{Limit: 5, Window: "1s"},
	}))
	assert.True(t, rules.Enabled())
	assert.Equal(t, Rule{Limit: 5, Window: time.Second}, rules.PerUser())
}

func TestRulesInvalidWindow(t *testing.T) {
	rules, err := NewRules(config.RateLimitConfig{
		Enabled: true,
		Global:  config.RateLimitRule{Limit: 100, Window: "soon"},
		PerUser: config.RateLimitRule{Limit: 5, Window: "1s"},
	})
	assert.ErrorContains(t, err, "global")
	assert.False(t, rules.Global().Active())
	assert.True(t, rules.PerUser().Active())
}

func TestNilRules(t *testing.T) {
	var rules *Rules
	assert.False(t, rules.Enabled())
	assert.False(t, rules.Exempt(1))
}
