// Package config describes the runtime configuration of the rewards bot.
package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	// File enables rotation through lumberjack when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type BotConfig struct {
	Token    string        `mapstructure:"token" validate:"required"`
	Username string        `mapstructure:"username"`
	Mode     string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// WebhookURL and WebhookListen are used in webhook mode only.
	WebhookURL    string `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookListen string `mapstructure:"webhook_listen"`
	// Owners may run every administrative command and receive reports.
	Owners []int64 `mapstructure:"owners"`
	// LogsChannel receives operational events, zero disables it.
	LogsChannel int64 `mapstructure:"logs_channel"`
	// RequiredChannels must be joined before a user counts as verified,
	// in addition to those stored through the admin panel.
	RequiredChannels []string      `mapstructure:"required_channels"`
	RestartBackoff   time.Duration `mapstructure:"restart_backoff"`
	BroadcastRPS     float64       `mapstructure:"broadcast_rps" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path is the database file used by the sqlite driver.
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		path := c.Path
		if path == "" {
			path = "rewards.db"
		}
		return SQLiteDSN(path)
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

// SQLiteDSN opens path with immediate write locks, a busy timeout and
// enforced foreign keys.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type CommandLimits struct {
	Claim  RateLimitRule `mapstructure:"claim"`
	Redeem RateLimitRule `mapstructure:"redeem"`
	Report RateLimitRule `mapstructure:"report"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Global    RateLimitRule `mapstructure:"global"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Commands  CommandLimits `mapstructure:"commands"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// LedgerConfig holds compiled-in defaults for tunables that may be
// overridden at runtime through the config table.
type LedgerConfig struct {
	InitialPoints      int `mapstructure:"initial_points" validate:"gte=0"`
	ClaimCost          int `mapstructure:"claim_cost" validate:"gte=0"`
	ReferralBonus      int `mapstructure:"referral_bonus" validate:"gte=0"`
	NormalKeyPoints    int `mapstructure:"normal_key_points" validate:"gte=0"`
	PremiumKeyPoints   int `mapstructure:"premium_key_points" validate:"gte=0"`
	LeaderboardSize    int `mapstructure:"leaderboard_size" validate:"gte=0"`
	MaxKeysPerCommand  int `mapstructure:"max_keys_per_command" validate:"gte=0"`
	VerificationTTLSec int `mapstructure:"verification_ttl_sec" validate:"gte=0"`
}

type JobsConfig struct {
	Concurrency    int    `mapstructure:"concurrency"`
	NotifyRetries  int    `mapstructure:"notify_retries"`
	StockGaugeCron string `mapstructure:"stock_gauge_cron"`
}
