// Package keyboard renders the bot's inline keyboards.
package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
)

// ModeCallback prefixes the callback data of mode selection buttons.
const ModeCallback = "mode"

// Builder creates the bot's keyboards.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// ModeMenu builds one button per lookup mode, labelled in the user's language.
func (b *Builder) ModeMenu(tr i18n.Translator) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, mode := range state.Modes {
		kb.AddRow(InlineButton{
			Text:   tr.T("menu." + string(mode)),
			Unique: ModeCallback,
			Data:   string(mode),
		})
	}

	markup, err := kb.Build()
	if err != nil {
		// mode names are short constants; only reachable through a programming error
		b.log.Error("failed to build mode menu", slog.Any("error", err))
		return &telebot.ReplyMarkup{}
	}

	return markup
}
