// Package config loads runtime settings with viper.
//
// Precedence, highest first: RILMAS_* environment variables, the optional
// YAML file, then the defaults below. Nested keys map to env names by
// upper-casing and replacing dots with underscores:
//
//	store.redis.addr → RILMAS_STORE_REDIS_ADDR
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "RILMAS"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type ServerCfg struct {
	Port int `mapstructure:"port"`
}

type LogCfg struct {
	Level string `mapstructure:"level"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type StoreCfg struct {
	Backend    string   `mapstructure:"backend"`
	SQLitePath string   `mapstructure:"sqlite_path"`
	Redis      RedisCfg `mapstructure:"redis"`
}

type SessionCfg struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Splash   time.Duration `mapstructure:"splash"`
}

type InviteCfg struct {
	BaseURL string `mapstructure:"base_url"`
}

type AuthCfg struct {
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	CodeLength     int           `mapstructure:"code_length"`
	MinPhoneLength int           `mapstructure:"min_phone_length"`
	HashCost       int           `mapstructure:"hash_cost"`
}

type Config struct {
	Server  ServerCfg  `mapstructure:"server"`
	Log     LogCfg     `mapstructure:"log"`
	Store   StoreCfg   `mapstructure:"store"`
	Session SessionCfg `mapstructure:"session"`
	Invite  InviteCfg  `mapstructure:"invite"`
	Auth    AuthCfg    `mapstructure:"auth"`
}

// setDefaults registers every key. AutomaticEnv only overrides keys viper
// already knows about, so a key without a default here cannot be set from
// the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.sqlite_path", "data/rilmas.db")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "rilmas:")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.token_ttl", 24*time.Hour)
	v.SetDefault("session.splash", 2*time.Second)

	v.SetDefault("invite.base_url", "http://localhost:8080")

	v.SetDefault("auth.code_ttl", 10*time.Minute)
	v.SetDefault("auth.code_length", 6)
	v.SetDefault("auth.min_phone_length", 10)
	v.SetDefault("auth.hash_cost", 10)
}

// Load reads path (skipped when empty), applies env overrides and validates
// the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: store.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("config: store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q (want %s, %s or %s)",
			c.Store.Backend, BackendMemory, BackendSQLite, BackendRedis)
	}

	if len(c.Session.Secret) < 16 {
		return fmt.Errorf("config: session.secret must be at least 16 characters (set %s_SESSION_SECRET)", envPrefix)
	}
	if c.Auth.HashCost != 0 && (c.Auth.HashCost < 4 || c.Auth.HashCost > 31) {
		return fmt.Errorf("config: auth.hash_cost %d outside 4..31", c.Auth.HashCost)
	}
	if c.Invite.BaseURL == "" {
		return fmt.Errorf("config: invite.base_url is required")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level: debug, info, warn or error.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
