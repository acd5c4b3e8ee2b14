package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/handlers"
	"github.com/Proton-105/gatekeeper-bot/internal/bot/keyboard"
	"github.com/Proton-105/gatekeeper-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandLabel(c), status, time.Since(start))

		return err
	}
}

// commandLabel keeps the label set small: the command name, the callback
// prefix or "text". User input never becomes a label value.
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		prefix, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			return "callback"
		}
		return "callback:" + prefix
	}

	text := strings.TrimSpace(c.Text())
	if !strings.HasPrefix(text, "/") {
		return "text"
	}

	command, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return command
}
