package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "BOT_TOKEN", "ADMIN_ID", "REQUIRED_CHANNEL", "SUPPORT_HANDLE",
		"PORT", "WEBHOOK_URL", "STORAGE_BACKEND", "DATA_DIR", "MONGODB_URI", "MONGODB_DATABASE",
		"REDIS_URL", "REDIS_PREFIX", "BROADCAST_DELAY", "DIGEST_CRON", "APP_ENV",
		"WEBHOOK_SECRET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.BotToken)
	require.Equal(t, int64(defaultAdminID), cfg.AdminID)
	require.Equal(t, defaultChannel, cfg.RequiredChannel)
	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, "file", cfg.StorageBackend)
	require.Equal(t, 200*time.Millisecond, cfg.BroadcastDelay)
	require.True(t, cfg.Polling())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "fallback")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("REQUIRED_CHANNEL", "@my_channel")
	t.Setenv("WEBHOOK_URL", "https://example.org/")
	t.Setenv("BROADCAST_DELAY", "50ms")
	t.Setenv("STORAGE_BACKEND", "REDIS")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "fallback", cfg.BotToken)
	require.Equal(t, int64(42), cfg.AdminID)
	require.Equal(t, "my_channel", cfg.RequiredChannel)
	require.Equal(t, "https://example.org", cfg.WebhookURL)
	require.False(t, cfg.Polling())
	require.Equal(t, 50*time.Millisecond, cfg.BroadcastDelay)
	require.Equal(t, "redis", cfg.StorageBackend)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"admin id":     {"ADMIN_ID", "abc"},
		"delay":        {"BROADCAST_DELAY", "soon"},
		"backend":      {"STORAGE_BACKEND", "sqlite"},
		"mongo no uri": {"STORAGE_BACKEND", "mongo"},
		"short secret": {"WEBHOOK_SECRET", "abc"},
		"secret chars": {"WEBHOOK_SECRET", "not/a/valid/secret!!"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TELEGRAM_BOT_TOKEN", "x")
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadWebhookSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.WebhookSecret, 32)
	require.NotContains(t, cfg.WebhookSecret, "abc")

	again, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg.WebhookSecret, again.WebhookSecret)

	t.Setenv("TELEGRAM_BOT_TOKEN", "456:def")
	other, err := Load()
	require.NoError(t, err)
	require.NotEqual(t, cfg.WebhookSecret, other.WebhookSecret)

	t.Setenv("WEBHOOK_SECRET", "my_explicit-secret_value")
	explicit, err := Load()
	require.NoError(t, err)
	require.Equal(t, "my_explicit-secret_value", explicit.WebhookSecret)
}
