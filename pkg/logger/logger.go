// Package logger builds the structured slog logger used across the bot.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/gatekeeper-bot/pkg/config"
)

// level is shared by every logger built by New so it can be changed at runtime.
var level = new(slog.LevelVar)

// New creates a logger from configuration: JSON or text output, optional rotated file,
// secret masking, and Sentry fan-out for error records when Sentry is enabled.
func New(cfg config.Config) *slog.Logger {
	SetLevel(cfg.Logger.Level)

	var out io.Writer = os.Stdout
	if cfg.Logger.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logger.File,
			MaxSize:    orDefault(cfg.Logger.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.Logger.MaxBackups, 5),
			MaxAge:     orDefault(cfg.Logger.MaxAgeDays, 14),
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	if cfg.Sentry.Enabled {
		handler = slogmulti.Fanout(
			handler,
			slogsentry.Option{Level: slog.LevelError, AddSource: true}.NewSentryHandler(),
		)
	}

	return slog.New(NewMaskingHandler(handler)).With(slog.String("env", cfg.AppEnv))
}

// SetLevel changes the level of every logger built by New. Unknown names mean info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Level reports the current shared level.
func Level() slog.Level {
	return level.Level()
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
