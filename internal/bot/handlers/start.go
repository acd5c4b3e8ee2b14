package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/keyboard"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
)

// NewStartHandler runs the entry checks and shows the mode menu.
func NewStartHandler(gate AccessGate, kb *keyboard.Builder, catalog *i18n.Manager, links DenyLinks, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		tr := Translator(catalog, c)
		decision, err := gate.CheckEntry(RequestContext(c), c.Sender().ID)
		if ok, err := admit(c, tr, links, log, decision, err); !ok {
			return err
		}

		return c.Send(tr.T("menu.title"), kb.ModeMenu(tr))
	}
}
