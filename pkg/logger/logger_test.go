package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gatekeeper-bot/pkg/config"
)

func TestNew_SentryFanoutKeepsLocalOutput(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	path := filepath.Join(t.TempDir(), "bot.log")
	cfg := config.Config{AppEnv: "test"}
	cfg.Logger.Level = "info"
	cfg.Logger.Format = "json"
	cfg.Logger.File = path
	cfg.Sentry.Enabled = true

	log := New(cfg)
	log.Debug("hidden")
	log.Info("lookup served", "bot_token", "123:abc")
	log.Error("store failed")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(raw)
	assert.Contains(t, out, `"msg":"lookup served"`)
	assert.Contains(t, out, `"msg":"store failed"`)
	assert.Contains(t, out, `"env":"test"`)
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "123:abc")
}
