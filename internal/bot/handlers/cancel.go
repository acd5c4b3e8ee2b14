package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
)

// NewCancelHandler clears the selected lookup mode. It passes the same entry
// checks as /start, so nothing changes while maintenance is on.
func NewCancelHandler(gate AccessGate, sessions state.Sessions, catalog *i18n.Manager, links DenyLinks, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		ctx := RequestContext(c)
		userID := c.Sender().ID
		tr := Translator(catalog, c)

		decision, err := gate.CheckEntry(ctx, userID)
		if ok, err := admit(c, tr, links, log, decision, err); !ok {
			return err
		}

		if err := sessions.Clear(ctx, userID); err != nil {
			log.Error("failed to clear user mode", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}

		return c.Send(tr.T("cancel.done"))
	}
}
