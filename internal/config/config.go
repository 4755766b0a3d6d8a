// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Cooldown store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// MinStaleAfter is the shortest grace period before an unsettled round is
// refunded. A round may take half of it to roll, plus one Telegram request
// and the dice animation.
const MinStaleAfter = 2 * time.Minute

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cooldown  CooldownConfig  `mapstructure:"cooldown"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Games     GamesConfig     `mapstructure:"games"`
	Cookie    CookieConfig    `mapstructure:"cookie"`
	Rounds    RoundsConfig    `mapstructure:"rounds"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
	// DiceAnimation waits for the platform dice animation before answering.
	DiceAnimation bool `mapstructure:"dice_animation"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// CooldownConfig holds cooldown windows and the backing store.
type CooldownConfig struct {
	Backend    string        `mapstructure:"backend"`
	Play       time.Duration `mapstructure:"play"`
	FreeTokens time.Duration `mapstructure:"free_tokens"`
}

// EconomyConfig holds token amounts.
type EconomyConfig struct {
	Bet            int64 `mapstructure:"bet"`
	FreeGrant      int64 `mapstructure:"free_grant"`
	InitialBalance int64 `mapstructure:"initial_balance"`
}

// GamesConfig holds the payout table for single-round games.
type GamesConfig struct {
	Payouts PayoutConfig `mapstructure:"payouts"`
}

// PayoutConfig holds the fixed payouts per game.
// Dice pays DiceBase times the drawn value, slot pays SlotBase times the code multiplier.
type PayoutConfig struct {
	Dart       int64 `mapstructure:"dart"`
	Basketball int64 `mapstructure:"basketball"`
	Football   int64 `mapstructure:"football"`
	Bowling    int64 `mapstructure:"bowling"`
	DiceBase   int64 `mapstructure:"dice_base"`
	SlotBase   int64 `mapstructure:"slot_base"`
}

// CookieConfig holds grid game settings.
type CookieConfig struct {
	GridSize   int           `mapstructure:"grid_size"`
	MineCount  int           `mapstructure:"mine_count"`
	CellReward int64         `mapstructure:"cell_reward"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// RoundsConfig holds round recovery settings.
type RoundsConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// SchedulerConfig holds background job intervals.
type SchedulerConfig struct {
	RecoverInterval time.Duration `mapstructure:"recover_interval"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// OpsConfig holds the operations HTTP server settings.
type OpsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Mode    string `mapstructure:"mode"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory. A .env file in the
// working directory, when present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// BOT_TOKEN, DATABASE_HOST, COOLDOWN_BACKEND, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv when no file sets them.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.dice_animation", true)
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arcade")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "arcade")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "arcade")

	v.SetDefault("cooldown.backend", BackendMemory)
	v.SetDefault("cooldown.play", "10s")
	v.SetDefault("cooldown.free_tokens", "2h")

	v.SetDefault("economy.bet", 300)
	v.SetDefault("economy.free_grant", 10000)
	v.SetDefault("economy.initial_balance", 0)

	v.SetDefault("games.payouts.dart", 1500)
	v.SetDefault("games.payouts.basketball", 750)
	v.SetDefault("games.payouts.football", 500)
	v.SetDefault("games.payouts.bowling", 1500)
	v.SetDefault("games.payouts.dice_base", 300)
	v.SetDefault("games.payouts.slot_base", 300)

	v.SetDefault("cookie.grid_size", 5)
	v.SetDefault("cookie.mine_count", 7)
	v.SetDefault("cookie.cell_reward", 500)
	v.SetDefault("cookie.session_ttl", "24h")

	v.SetDefault("rounds.stale_after", "2m")

	v.SetDefault("scheduler.recover_interval", "1m")
	v.SetDefault("scheduler.sweep_interval", "10m")

	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.addr", ":8080")
	v.SetDefault("ops.mode", "release")
}

// Validate checks values that would make the economy inconsistent.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Cooldown.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported cooldown backend %q", c.Cooldown.Backend)
	}
	if c.Economy.Bet <= 0 {
		return fmt.Errorf("economy.bet must be positive, got %d", c.Economy.Bet)
	}
	if c.Economy.FreeGrant < 0 || c.Economy.InitialBalance < 0 {
		return fmt.Errorf("economy amounts must not be negative")
	}
	if c.Rounds.StaleAfter < MinStaleAfter {
		return fmt.Errorf("rounds.stale_after must be at least %s, got %s", MinStaleAfter, c.Rounds.StaleAfter)
	}
	if c.Cooldown.Play < 0 || c.Cooldown.FreeTokens < 0 {
		return fmt.Errorf("cooldown windows must not be negative")
	}
	return nil
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
