package ratelimit

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Proton-105/rewards-bot/pkg/config"
)

// Commands with their own bucket on top of the per-user one.
const (
	CommandClaim  = "claim"
	CommandRedeem = "redeem"
	CommandReport = "report"
)

// Rule allows Limit events per Window. The zero Rule is disabled.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) Active() bool { return r.Limit > 0 && r.Window > 0 }

type policy struct {
	enabled   bool
	global    Rule
	perUser   Rule
	commands  map[string]Rule
	whitelist []int64
}

// Rules holds the compiled limits. Update swaps them atomically on config
// reload.
type Rules struct {
	current atomic.Pointer[policy]
}

// NewRules compiles cfg. Rules with a malformed window are disabled and
// reported in the returned error; the other rules still apply.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	r := &Rules{}
	return r, r.Update(cfg)
}

func (r *Rules) Update(cfg config.RateLimitConfig) error {
	var bad []string
	compile := func(name string, raw config.RateLimitRule) Rule {
		if raw.Window == "" {
			return Rule{}
		}
		window, err := time.ParseDuration(raw.Window)
		if err != nil {
			bad = append(bad, name)
			return Rule{}
		}
		return Rule{Limit: raw.Limit, Window: window}
	}

	p := &policy{
		enabled: cfg.Enabled,
		global:  compile("global", cfg.Global),
		perUser: compile("per_user", cfg.PerUser),
		commands: map[string]Rule{
			CommandClaim:  compile(CommandClaim, cfg.Commands.Claim),
			CommandRedeem: compile(CommandRedeem, cfg.Commands.Redeem),
			CommandReport: compile(CommandReport, cfg.Commands.Report),
		},
		whitelist: slices.Clone(cfg.Whitelist),
	}
	r.current.Store(p)

	if len(bad) > 0 {
		return fmt.Errorf("ratelimit: invalid window for %v", bad)
	}
	return nil
}

func (r *Rules) load() *policy {
	if r == nil {
		return &policy{}
	}
	if p := r.current.Load(); p != nil {
		return p
	}
	return &policy{}
}

func (r *Rules) Enabled() bool { return r.load().enabled }

// Exempt reports whether userID bypasses all limits.
func (r *Rules) Exempt(userID int64) bool {
	return slices.Contains(r.load().whitelist, userID)
}

func (r *Rules) Global() Rule  { return r.load().global }
func (r *Rules) PerUser() Rule { return r.load().perUser }

// Command returns the rule of command, or a disabled Rule for commands
// without one.
func (r *Rules) Command(command string) Rule { return r.load().commands[command] }
