package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/handlers"
	"github.com/Proton-105/gatekeeper-bot/internal/idempotency"
)

// UpdateTTL is how long a handled update is remembered. Telegram stops
// redelivering well within a day.
const UpdateTTL = 24 * time.Hour

// Idempotency ensures handlers execute at most once per Telegram update.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			result, err := manager.Execute(handlers.RequestContext(c), key, UpdateTTL, func(context.Context) error {
				return next(c)
			})
			if errors.Is(err, idempotency.ErrRequestInProgress) {
				log.Debug("update already being handled", slog.String("key", key))
				return nil
			}
			if err != nil {
				return err
			}

			if result.FromCache {
				log.Debug("duplicate update skipped", slog.String("key", key))
			}

			return nil
		}
	}
}

func updateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return idempotency.GenerateKey("callback", cb.ID)
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return idempotency.GenerateKey("message", chatID, msg.ID)
	}

	return ""
}
