// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigDir = "./configs"

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional
		_ = err
	}

	return LoadFrom(defaultConfigDir)
}

// LoadFrom reads <dir>/<APP_ENV>.yaml, overlays environment variables and validates the result.
func LoadFrom(dir string) (*Config, *viper.Viper, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, env+".yaml"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-decodes the configuration whenever the backing file changes and hands
// valid results to onChange. Invalid edits are reported through onError and ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v == nil || onChange == nil {
		return
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", event.Name, err))
			}
			return
		}

		onChange(cfg)
	})
	v.WatchConfig()
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.update_timeout", 45*time.Second)
	v.SetDefault("bot.default_lang", "en")

	v.SetDefault("access.trial_duration", 30*time.Minute)
	v.SetDefault("access.premium_duration", 30*24*time.Hour)
	v.SetDefault("access.membership_timeout", 5*time.Second)

	v.SetDefault("lookup.timeout", 10*time.Second)
	v.SetDefault("lookup.min_interval", 1200*time.Millisecond)

	v.SetDefault("storage.driver", "redis")
	v.SetDefault("storage.migrations_dir", "migrations")
	v.SetDefault("session.backend", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.per_user.limit", 20)
	v.SetDefault("rate_limit.per_user.window", "1m")
	v.SetDefault("rate_limit.lookup.limit", 10)
	v.SetDefault("rate_limit.lookup.window", "1m")
}
