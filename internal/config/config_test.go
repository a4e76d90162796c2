package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKickThreshold(t *testing.T) {
	tests := []struct {
		players int
		want    int
	}{
		{2, 2}, {3, 2}, {4, 2},
		{5, 3}, {6, 3}, {7, 3},
		{8, 4}, {12, 4}, {50, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KickThreshold(tt.players), "players=%d", tt.players)
	}
}

func TestKickThreshold_Monotonic(t *testing.T) {
	prev := KickThreshold(1)
	for n := 2; n <= 30; n++ {
		cur := KickThreshold(n)
		assert.GreaterOrEqual(t, cur, prev, "threshold decreased at %d players", n)
		prev = cur
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_KEY_PREFIX", "test:")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("LOG_LEVEL", "not-a-level")

	cfg, err := fromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "test:", cfg.RedisKeyPrefix)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "info", cfg.LogLevel, "invalid level falls back to info")
	assert.Equal(t, 5, cfg.ChatBurst)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := fromViper(newViper())
	require.NoError(t, err, "tools load without a secret")

	assert.ErrorContains(t, cfg.requireSecret(), "JWT_SECRET")
}

func TestNewLogger_ProductionUsesJSON(t *testing.T) {
	cfg := &Config{AppEnv: "production", LogLevel: "debug"}

	log := cfg.NewLogger()

	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Equal(t, logrus.DebugLevel, log.Level)
}
