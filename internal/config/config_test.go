package config_test

import (
	"os"
	"pairchat/backend/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost user=user dbname=pairchat")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, config.DefaultRequeueDelay, cfg.RequeueDelay)
	assert.Equal(t, 10*time.Minute, cfg.PreferenceCacheTTL)
	assert.Equal(t, 5242880, cfg.MaxPictureBytes)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Empty(t, cfg.TelegramBotToken)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REQUEUE_DELAY", "2s")
	t.Setenv("REDIS_DB", "3")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.RequeueDelay)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("DATABASE_DSN"))

	_, err := config.Load()

	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveDelay(t *testing.T) {
	setRequired(t)
	t.Setenv("REQUEUE_DELAY", "0s")

	_, err := config.Load()

	assert.ErrorContains(t, err, "REQUEUE_DELAY")
}
