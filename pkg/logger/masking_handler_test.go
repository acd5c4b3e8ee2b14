package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.With(slog.String("bot_token", "123:abc")).Info("starting",
		slog.String("password", "hunter2"),
		slog.Group("redis", slog.String("Password", "pw"), slog.String("addr", "localhost:6379")),
		slog.Int64("user_id", 42),
	)

	out := buf.String()
	assert.NotContains(t, out, "123:abc")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "=pw")
	assert.Contains(t, out, "redis.addr=localhost:6379")
	assert.Contains(t, out, "user_id=42")
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, Level())

	SetLevel("ERROR")
	assert.Equal(t, slog.LevelError, Level())

	SetLevel("bogus")
	assert.Equal(t, slog.LevelInfo, Level())
}
