package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/rewards-bot/pkg/config"
)

// InitSentry configures the global Sentry hub when enabled. The returned
// flush drains buffered events and is safe to call when disabled.
func InitSentry(cfg config.Config) (func(), error) {
	if !cfg.Sentry.Enabled {
		return func() {}, nil
	}

	env := cfg.Sentry.Environment
	if env == "" {
		env = cfg.AppEnv
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      env,
		SampleRate:       cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}
