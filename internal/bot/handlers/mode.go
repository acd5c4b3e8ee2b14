package handlers

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
)

// NewModeCallback handles the mode menu buttons. The entry checks run before
// the mode is stored, so a denied user never gets a mode.
func NewModeCallback(gate AccessGate, sessions state.Sessions, catalog *i18n.Manager, links DenyLinks, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		cb := c.Callback()
		if cb == nil || c.Sender() == nil {
			return nil
		}

		if err := c.Respond(); err != nil {
			log.Debug("failed to acknowledge callback", slog.Any("error", err))
		}

		_, payload, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			return apperrors.NewStateError(err.Error())
		}

		mode, err := state.ParseMode(payload)
		if err != nil {
			return apperrors.NewStateError(fmt.Sprintf("unknown mode button %q", cb.Data))
		}

		ctx := RequestContext(c)
		userID := c.Sender().ID
		tr := Translator(catalog, c)

		decision, err := gate.CheckEntry(ctx, userID)
		if ok, err := admit(c, tr, links, log, decision, err); !ok {
			return err
		}

		if err := sessions.Select(ctx, userID, mode); err != nil {
			return err
		}

		return c.Send(tr.T("prompt."+string(mode)), telebot.ModeHTML)
	}
}
