package keyboard_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gatekeeper-bot/internal/bot/keyboard"
	"github.com/Proton-105/gatekeeper-bot/internal/i18n"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(
			keyboard.InlineButton{Text: "Vehicle", Unique: "mode", Data: "vehicle"},
			keyboard.InlineButton{Text: "Number", Unique: "mode", Data: "number"},
		).AddRow(
			keyboard.InlineButton{Text: "Menu", Unique: "menu"},
		).AddRow()

		markup, err := builder.Build()
		require.NoError(t, err)
		require.NotNil(t, markup)

		require.Len(t, markup.InlineKeyboard, 2)
		assert.Len(t, markup.InlineKeyboard[0], 2)
		assert.Len(t, markup.InlineKeyboard[1], 1)
		assert.Equal(t, "mode:number", markup.InlineKeyboard[0][1].Data)
		assert.Equal(t, "menu", markup.InlineKeyboard[1][0].Data)
		assert.Empty(t, markup.InlineKeyboard[0][0].Unique)
	})

	t.Run("callback data overflow", func(t *testing.T) {
		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(keyboard.InlineButton{
			Text:   "Too big",
			Unique: "overflow",
			Data:   strings.Repeat("x", keyboard.CallbackDataLimitBytes),
		})

		_, err := builder.Build()
		assert.Error(t, err)
	})
}

func TestBuilder_ModeMenu(t *testing.T) {
	m, err := i18n.Load("en")
	require.NoError(t, err)

	markup := keyboard.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil))).ModeMenu(m.Translator("en"))

	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "mode:vehicle", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "mode:insta", markup.InlineKeyboard[1][0].Data)
	assert.Equal(t, "mode:number", markup.InlineKeyboard[2][0].Data)
	assert.Equal(t, "🚘 Vehicle Details", markup.InlineKeyboard[0][0].Text)
}
