package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123:abc"
  owners: [42, 43]
database:
  driver: sqlite
  path: /tmp/rewards.db
`)

	cfg, _, err := Load(Flags{ConfigFile: path}, viper.New())
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, []int64{42, 43}, cfg.Bot.Owners)
	assert.Equal(t, 20, cfg.Ledger.InitialPoints)
	assert.Equal(t, 10, cfg.Ledger.ClaimCost)
	assert.Equal(t, 5, cfg.Ledger.ReferralBonus)
	assert.Equal(t, 15, cfg.Ledger.NormalKeyPoints)
	assert.Equal(t, 90, cfg.Ledger.PremiumKeyPoints)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Contains(t, cfg.Database.DSN(), "_txlock=immediate")
}

func TestLoad_RejectsMissingToken(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
`)

	_, _, err := Load(Flags{ConfigFile: path}, viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "t"
database:
  driver: mysql
`)

	_, _, err := Load(Flags{ConfigFile: path}, viper.New())
	require.Error(t, err)
}

func TestParseFlags_BindsOverrides(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("bot", pflag.ContinueOnError)

	flags, err := ParseFlags(fs, []string{"--config", "x.yaml", "--migrate-only", "--log-level", "debug"}, v)
	require.NoError(t, err)

	assert.Equal(t, "x.yaml", flags.ConfigFile)
	assert.True(t, flags.MigrateOnly)
	assert.Equal(t, "debug", v.GetString("logger.level"))
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "rewards"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rewards sslmode=disable", cfg.DSN())
}
