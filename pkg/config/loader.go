package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flags are the command line switches understood by the bot binary.
type Flags struct {
	ConfigFile  string
	MigrateOnly bool
}

// ParseFlags registers the bot flags on fs and binds them into v.
func ParseFlags(fs *pflag.FlagSet, args []string, v *viper.Viper) (Flags, error) {
	var flags Flags
	fs.StringVar(&flags.ConfigFile, "config", "", "path to a YAML config file (default ./configs/<APP_ENV>.yaml)")
	fs.BoolVar(&flags.MigrateOnly, "migrate-only", false, "apply database migrations and exit")
	fs.String("log-level", "", "override logger.level")
	fs.String("db-driver", "", "override database.driver (postgres or sqlite)")

	if err := fs.Parse(args); err != nil {
		return flags, fmt.Errorf("parse flags: %w", err)
	}

	if v != nil {
		if f := fs.Lookup("log-level"); f != nil && f.Changed {
			if err := v.BindPFlag("logger.level", f); err != nil {
				return flags, fmt.Errorf("bind log-level: %w", err)
			}
		}
		if f := fs.Lookup("db-driver"); f != nil && f.Changed {
			if err := v.BindPFlag("database.driver", f); err != nil {
				return flags, fmt.Errorf("bind db-driver: %w", err)
			}
		}
	}

	return flags, nil
}

func setDefaults(v *viper.Viper) {
	// Secrets have empty defaults so AutomaticEnv picks them up on Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.username", "")
	v.SetDefault("bot.owners", []int64{})
	v.SetDefault("bot.logs_channel", 0)
	v.SetDefault("bot.required_channels", []string{})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "rewards")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("ratelimit.enabled", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.webhook_listen", ":8443")
	v.SetDefault("bot.restart_backoff", 15*time.Second)
	v.SetDefault("bot.broadcast_rps", 20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "rewards.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("server.port", 9090)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("ratelimit.global.limit", 30)
	v.SetDefault("ratelimit.global.window", "1s")
	v.SetDefault("ratelimit.per_user.limit", 20)
	v.SetDefault("ratelimit.per_user.window", "1m")
	v.SetDefault("ratelimit.commands.claim.limit", 5)
	v.SetDefault("ratelimit.commands.claim.window", "1m")
	v.SetDefault("ratelimit.commands.redeem.limit", 5)
	v.SetDefault("ratelimit.commands.redeem.window", "1m")
	v.SetDefault("ratelimit.commands.report.limit", 3)
	v.SetDefault("ratelimit.commands.report.window", "10m")

	v.SetDefault("ledger.initial_points", 20)
	v.SetDefault("ledger.claim_cost", 10)
	v.SetDefault("ledger.referral_bonus", 5)
	v.SetDefault("ledger.normal_key_points", 15)
	v.SetDefault("ledger.premium_key_points", 90)
	v.SetDefault("ledger.leaderboard_size", 10)
	v.SetDefault("ledger.max_keys_per_command", 100)
	v.SetDefault("ledger.verification_ttl_sec", 300)

	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.notify_retries", 3)
	v.SetDefault("jobs.stock_gauge_cron", "@every 1m")
}

// Load reads .env files, the YAML config and environment overrides, then
// validates the result. The returned viper instance stays usable for Watch.
func Load(flags Flags, v *viper.Viper) (*Config, *viper.Viper, error) {
	// Missing .env files are fine outside local development.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	path := flags.ConfigFile
	if path == "" {
		path = fmt.Sprintf("./configs/%s.yaml", env)
	}
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if flags.ConfigFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Watch re-decodes the configuration whenever the file changes and hands
// the new value to onChange. Invalid edits are reported through onError.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}
