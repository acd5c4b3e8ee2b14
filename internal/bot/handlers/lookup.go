package handlers

import (
	"html"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/lookup"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
)

// NewLookupHandler answers free text. The full access check runs first, then
// the text is resolved with the service of the selected mode.
func NewLookupHandler(gate AccessGate, sessions state.Sessions, lookuper Lookuper, catalog *i18n.Manager, links DenyLinks, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c.Sender() == nil {
			return nil
		}

		ctx := RequestContext(c)
		userID := c.Sender().ID
		tr := Translator(catalog, c)

		decision, err := gate.Check(ctx, userID)
		if ok, err := admit(c, tr, links, log, decision, err); !ok {
			return err
		}

		mode, err := sessions.Mode(ctx, userID)
		if err != nil {
			return err
		}
		if mode == state.ModeNone {
			return c.Send(tr.T("lookup.no_mode"))
		}

		query := strings.TrimSpace(c.Text())
		if query == "" {
			return c.Send(tr.T("error.input"))
		}

		if err := c.Send(tr.Tf("lookup.processing", html.EscapeString(query)), telebot.ModeHTML); err != nil {
			log.Warn("failed to send processing notice", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		result, err := lookuper.Lookup(ctx, userID, mode, query)
		if err != nil {
			return err
		}

		return sendResult(c, result, log)
	}
}

func sendResult(c telebot.Context, result *lookup.Result, log *slog.Logger) error {
	if result.PhotoURL != "" {
		photo := &telebot.Photo{File: telebot.FromURL(result.PhotoURL), Caption: result.Text}
		err := c.Send(photo, telebot.ModeHTML)
		if err == nil {
			return nil
		}
		log.Warn("failed to send photo, falling back to text", slog.String("photo_url", result.PhotoURL), slog.Any("error", err))
	}

	return c.Send(result.Text, telebot.ModeHTML, telebot.NoPreview)
}
