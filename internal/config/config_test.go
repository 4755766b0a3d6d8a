package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, int64(300), cfg.Economy.Bet)
	assert.Equal(t, int64(10000), cfg.Economy.FreeGrant)
	assert.Equal(t, int64(0), cfg.Economy.InitialBalance)
	assert.Equal(t, 10*time.Second, cfg.Cooldown.Play)
	assert.Equal(t, 2*time.Hour, cfg.Cooldown.FreeTokens)
	assert.Equal(t, BackendMemory, cfg.Cooldown.Backend)
	assert.Equal(t, 5, cfg.Cookie.GridSize)
	assert.Equal(t, 7, cfg.Cookie.MineCount)
	assert.Equal(t, int64(500), cfg.Cookie.CellReward)
	assert.Equal(t, int64(1500), cfg.Games.Payouts.Dart)
	assert.Equal(t, int64(300), cfg.Games.Payouts.SlotBase)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
economy:
  bet: 500
cookie:
  mine_count: 3
whitelist:
  chats: [-100123]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("COOKIE_MINE_COUNT", "4")
	t.Setenv("BOT_TOKEN", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.Economy.Bet)
	assert.Equal(t, 4, cfg.Cookie.MineCount)
	assert.Equal(t, "secret", cfg.Bot.Token)
	assert.True(t, cfg.IsChatAllowed(-100123))
	assert.False(t, cfg.IsChatAllowed(42))
}

func TestLoad_SecretsFromEnvWithoutFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_PASSWORD", "pg-secret")
	t.Setenv("REDIS_PASSWORD", "redis-secret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "pg-secret", cfg.Database.Password)
	assert.Equal(t, "redis-secret", cfg.Redis.Password)
	assert.Equal(t, 2*time.Minute, cfg.Rounds.StaleAfter)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: DriverMemory},
			Cooldown: CooldownConfig{Backend: BackendMemory, Play: time.Second},
			Economy:  EconomyConfig{Bet: 300},
			Rounds:   RoundsConfig{StaleAfter: MinStaleAfter},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"unknown backend", func(c *Config) { c.Cooldown.Backend = "etcd" }, true},
		{"zero bet", func(c *Config) { c.Economy.Bet = 0 }, true},
		{"negative grant", func(c *Config) { c.Economy.FreeGrant = -1 }, true},
		{"zero stale after", func(c *Config) { c.Rounds.StaleAfter = 0 }, true},
		{"stale after below minimum", func(c *Config) { c.Rounds.StaleAfter = 30 * time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsChatAllowed_EmptyWhitelist(t *testing.T) {
	c := &Config{}
	assert.True(t, c.IsChatAllowed(1))
	assert.True(t, c.IsChatAllowed(-1))
}
