// Package health runs dependency checks for the ops endpoints.
package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	defaultCheckTimeout = 3 * time.Second
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Report is the JSON body of /healthz.
type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Healthy reports whether every component passed.
func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	mu      sync.RWMutex
	log     *slog.Logger
	checks  map[string]Checkable
	timeout time.Duration
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		log:     log,
		checks:  make(map[string]Checkable),
		timeout: defaultCheckTimeout,
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names lists the registered components.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs all registered checks concurrently, each bounded by the
// checker timeout.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{Status: StatusOK, Components: make(map[string]string, len(checks))}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Checkable) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			result := StatusOK
			if err := check.HealthCheck(checkCtx); err != nil {
				result = err.Error()
				c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
			}

			mu.Lock()
			report.Components[name] = result
			if result != StatusOK {
				report.Status = StatusDegraded
			}
			mu.Unlock()
		}(name, check)
	}

	wg.Wait()
	return report
}

// DBChecker verifies connectivity to the ledger database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database to ensure it is reachable.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// Identity returns the bot account, as *telebot.Bot.Me does after login.
type Identity func() *telebot.User

// TelegramChecker verifies that the bot logged in to the Bot API.
type TelegramChecker struct {
	me Identity
}

// NewTelegramChecker constructs a TelegramChecker for bot.
func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	if bot == nil {
		return &TelegramChecker{}
	}
	return &TelegramChecker{me: func() *telebot.User { return bot.Me }}
}

// HealthCheck fails until the bot has an identity.
func (c *TelegramChecker) HealthCheck(context.Context) error {
	if c == nil || c.me == nil || c.me() == nil {
		return errors.New("telegram bot is not initialized or disconnected")
	}
	return nil
}
