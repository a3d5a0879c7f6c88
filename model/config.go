package model

import "time"

// Config is an immutable snapshot of the bot configuration. A reload builds
// a new Config instead of mutating the one handed to running handlers.
type Config struct {
	Version   uint64          `mapstructure:"-"`
	Bot       BotConfig       `mapstructure:"bot"`
	DB        DatabaseConfig  `mapstructure:"db"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Starboard StarboardConfig `mapstructure:"starboard"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// BotConfig holds gateway settings.
type BotConfig struct {
	Token            string `mapstructure:"token"`
	StateMaxMessages int    `mapstructure:"state_max_messages"`
}

// DatabaseConfig describes how to reach the relational store.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	PasswordFile string `mapstructure:"password_file"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// CacheConfig selects the deduplicating cache backend.
type CacheConfig struct {
	Backend      string        `mapstructure:"backend"`
	ExpiresAfter time.Duration `mapstructure:"expires_after"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisPrefix  string        `mapstructure:"redis_prefix"`
}

// StarboardConfig holds process-wide starboard settings.
type StarboardConfig struct {
	AllowedEmojis []string `mapstructure:"allowed_emojis"`
	// Color is the mirror embed accent as a hex string.
	Color string `mapstructure:"color"`
}

// IsStarEmoji reports whether emoji is in the allow-list.
func (c StarboardConfig) IsStarEmoji(emoji string) bool {
	for _, e := range c.AllowedEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	WebhookURL string `mapstructure:"webhook_url"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}
