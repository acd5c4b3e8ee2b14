package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/handlers"
	errors "github.com/Proton-105/gatekeeper-bot/internal/errors"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/pkg/logger"
	"github.com/Proton-105/gatekeeper-bot/pkg/metrics"
)

// DefaultUpdateTimeout bounds the work done for one update.
const DefaultUpdateTimeout = 45 * time.Second

// ContextMiddleware gives every update its own context with a correlation id
// and a deadline, available to handlers through handlers.RequestContext.
func ContextMiddleware(timeout time.Duration) handlers.Middleware {
	if timeout <= 0 {
		timeout = DefaultUpdateTimeout
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			ctx, cancel := context.WithTimeout(logger.WithCorrelationID(context.Background(), ""), timeout)
			defer cancel()

			c.Set(handlers.ContextKey, ctx)
			return next(c)
		}
	}
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, catalog *i18n.Manager) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

				key := errors.KeyGeneric
				if errHandler != nil {
					key, _ = errHandler.Handle(handlers.RequestContext(c), fmt.Errorf("panic recovered: %v", r))
				}
				metrics.RecordError("panic", string(errors.SeverityCritical))

				if sendErr := c.Send(handlers.Translator(catalog, c).T(key)); sendErr != nil {
					log.Error("failed to notify user about panic", slog.Any("error", sendErr))
				}

				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures and answers the user with
// the localized message picked by errHandler. Error text never reaches the user.
func ErrorHandlingMiddleware(errHandler *errors.Handler, catalog *i18n.Manager) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			code, severity := "unknown", string(errors.SeverityHigh)
			var appErr *errors.AppError
			if stdErrors.As(err, &appErr) {
				code, severity = appErr.Code, string(appErr.Severity)
			}
			metrics.RecordError(code, severity)

			key := errors.KeyGeneric
			if errHandler != nil {
				key, _ = errHandler.Handle(handlers.RequestContext(c), err)
			}

			_ = c.Send(handlers.Translator(catalog, c).T(key))
			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates. Message text
// is not logged; it carries the user's queries.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			ctx := handlers.RequestContext(c)
			attrs := []slog.Attr{
				slog.Int64("user_id", userID),
				slog.String("kind", updateKind(c)),
				slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
			}

			log.LogAttrs(ctx, slog.LevelDebug, "handling update", attrs...)
			err := next(c)

			attrs = append(attrs, slog.Duration("duration", time.Since(start)))
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			log.LogAttrs(ctx, slog.LevelInfo, "handled update", attrs...)

			return err
		}
	}
}

// AdminOnly turns handlers into silent no-ops for everyone but admins.
func AdminOnly(isAdmin func(int64) bool, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if c.Sender() == nil || isAdmin == nil || !isAdmin(c.Sender().ID) {
				if c.Sender() != nil {
					log.Debug("admin command ignored", slog.Int64("user_id", c.Sender().ID))
				}
				return nil
			}
			return next(c)
		}
	}
}

func updateKind(c telebot.Context) string {
	if c.Callback() != nil {
		return "callback"
	}
	if command, ok := parseCommand(c.Text()); ok {
		return command
	}
	return "text"
}
