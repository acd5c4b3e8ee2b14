package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the gatekeeper bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Access    AccessConfig    `mapstructure:"access" validate:"required"`
	Lookup    LookupConfig    `mapstructure:"lookup" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token          string        `mapstructure:"token" validate:"required"`
	Mode           string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout        time.Duration `mapstructure:"timeout"`
	WebhookListen  string        `mapstructure:"webhook_listen"`
	UpdateTimeout  time.Duration `mapstructure:"update_timeout"`
	CreatedDate    string        `mapstructure:"created_date"`
	DefaultLang    string        `mapstructure:"default_lang"`
	SupportContact string        `mapstructure:"support_contact"`
}

// AccessConfig configures the access gate.
type AccessConfig struct {
	AdminIDs          []int64       `mapstructure:"admin_ids" validate:"min=1"`
	Channel           string        `mapstructure:"channel" validate:"required"`
	ChannelURL        string        `mapstructure:"channel_url" validate:"omitempty,url"`
	TrialDuration     time.Duration `mapstructure:"trial_duration" validate:"gt=0"`
	PremiumDuration   time.Duration `mapstructure:"premium_duration" validate:"gt=0"`
	MembershipTimeout time.Duration `mapstructure:"membership_timeout"`
}

// LookupConfig configures the third-party lookup endpoints.
type LookupConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	VehicleURL  string        `mapstructure:"vehicle_url" validate:"required"`
	InstaURL    string        `mapstructure:"insta_url" validate:"required"`
	NumberURLs  NumberURLs    `mapstructure:"number" validate:"required"`
}

// NumberURLs lists the three endpoints queried for a phone number lookup.
type NumberURLs struct {
	ProfileURL  string `mapstructure:"profile_url" validate:"required"`
	LocationURL string `mapstructure:"location_url" validate:"required"`
	CallerURL   string `mapstructure:"caller_url" validate:"required"`
}

// StorageConfig selects the user store backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver" validate:"oneof=redis postgres"`
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"required_if=Driver postgres"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// SessionConfig selects the session backend.
type SessionConfig struct {
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
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

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggerConfig configures log output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures Sentry error reporting.
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// RateLimitConfig configures per-user and lookup rate limits.
type RateLimitConfig struct {
	Backend   string        `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Lookup    RateLimitRule `mapstructure:"lookup"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// RateLimitRule is a limit per window, the window given as a duration string.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RedisEnabled reports whether any component needs a Redis connection.
func (c *Config) RedisEnabled() bool {
	return c.Storage.Driver == "redis" ||
		c.Session.Backend == "redis" ||
		c.RateLimit.Backend == "redis"
}

// String renders the configuration without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"env=%s bot_mode=%s storage=%s session=%s rate_limit=%s admins=%d channel=%s",
		c.AppEnv,
		c.Bot.Mode,
		c.Storage.Driver,
		c.Session.Backend,
		c.RateLimit.Backend,
		len(c.Access.AdminIDs),
		c.Access.Channel,
	)
}
