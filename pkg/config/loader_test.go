package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
bot:
  token: "file-token"
access:
  admin_ids: [42, 43]
  channel: "@gate"
lookup:
  vehicle_url: "http://vehicle/{query}"
  insta_url: "http://insta/{query}"
  number:
    profile_url: "http://profile/{query}"
    location_url: "http://location/{query}"
    caller_url: "http://caller/{query}"
`

func writeConfig(t *testing.T, env, body string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, env+".yaml"), []byte(body), 0o600))
	t.Setenv("APP_ENV", env)
	return dir
}

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	dir := writeConfig(t, "test", testConfigYAML)

	cfg, v, err := LoadFrom(dir)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Equal(t, []int64{42, 43}, cfg.Access.AdminIDs)
	assert.Equal(t, 30*time.Minute, cfg.Access.TrialDuration)
	assert.Equal(t, 30*24*time.Hour, cfg.Access.PremiumDuration)
	assert.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, "test", testConfigYAML)
	t.Setenv("BOT_TOKEN", "env-token")

	cfg, _, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Bot.Token)
}

func TestLoadFrom_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "missing token",
			body: `
access:
  admin_ids: [1]
  channel: "@gate"
lookup:
  vehicle_url: "v"
  insta_url: "i"
  number: {profile_url: "p", location_url: "l", caller_url: "c"}
`,
		},
		{
			name: "no admins",
			body: `
bot: {token: "x"}
access:
  channel: "@gate"
lookup:
  vehicle_url: "v"
  insta_url: "i"
  number: {profile_url: "p", location_url: "l", caller_url: "c"}
`,
		},
		{
			name: "postgres without dsn",
			body: testConfigYAML + `
storage:
  driver: postgres
`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfig(t, "invalid", tc.body)

			_, _, err := LoadFrom(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	t.Setenv("APP_ENV", "absent")

	_, _, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}
