package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DEFAULT_MAX_BALANCE", "")

	cfg := Load()
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.True(t, cfg.DefaultMaxBalance.Equal(decimal.NewFromInt(1000000000)))
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 5*time.Second, cfg.TriggerRefresh)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("CHAT_RATE_PER_SEC", "0.5")
	t.Setenv("DEFAULT_MAX_BALANCE", "10000000000")
	t.Setenv("WS_MAX_MESSAGE_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 0.5, cfg.ChatRate)
	assert.Equal(t, "10000000000", cfg.DefaultMaxBalance.String())
	assert.Equal(t, int64(65536), cfg.MaxMessageSize)
}

func TestValidate(t *testing.T) {
	cfg := &Config{AppEnv: "production", HTTPPort: 3000, ChatMaxLength: 10}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "s3cret"
	require.NoError(t, cfg.Validate())

	dev := &Config{AppEnv: "development", HTTPPort: 3000, ChatMaxLength: 10}
	require.NoError(t, dev.Validate())
	assert.NotEmpty(t, dev.JWTSecret)

	bad := &Config{HTTPPort: 0, JWTSecret: "x", ChatMaxLength: 10}
	assert.Error(t, bad.Validate())

	huge := &Config{HTTPPort: 3000, JWTSecret: "x", ChatMaxLength: 10, DefaultMaxBalance: decimal.RequireFromString("1e40")}
	assert.Error(t, huge.Validate())
}
