package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv 设置环境变量并在测试结束时恢复原值
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	original, existed := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"drift.mail"}, cfg.Mailbox.AllowedDomains)
	assert.Equal(t, 10*time.Minute, cfg.Mailbox.DefaultTTL)
	assert.Equal(t, 12, cfg.Mailbox.TokenLength)
	assert.Equal(t, ":25", cfg.SMTP.BindAddr)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Database.Type)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	setEnv(t, "DRIFTMAIL_SERVER_PORT", "9090")
	setEnv(t, "DRIFTMAIL_MAILBOX_ALLOWED_DOMAINS", "Temp.One, temp.two")
	setEnv(t, "DRIFTMAIL_MAILBOX_DEFAULT_TTL", "30m")
	setEnv(t, "DRIFTMAIL_SWEEP_INTERVAL", "5m")
	setEnv(t, "DRIFTMAIL_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	// 域名统一转为小写并去除空白
	assert.Equal(t, []string{"temp.one", "temp.two"}, cfg.Mailbox.AllowedDomains)
	assert.Equal(t, 30*time.Minute, cfg.Mailbox.DefaultTTL)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidTTL(t *testing.T) {
	setEnv(t, "DRIFTMAIL_MAILBOX_DEFAULT_TTL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadNegativeTTL(t *testing.T) {
	setEnv(t, "DRIFTMAIL_MAILBOX_DEFAULT_TTL", "-10m")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseList("a, b"))
	assert.Equal(t, []string{"a"}, parseList("a,,"))
	assert.Empty(t, parseList("  "))
}
