package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/signage")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("URL_SIGNING_SECRET", "test-signing-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 60, cfg.PollSeconds)
	assert.Equal(t, 120, cfg.StandbyPollSeconds)
	assert.Equal(t, 600, cfg.PairingTTLSeconds)
	assert.Equal(t, 10*time.Minute, cfg.PairingTTL())
	assert.Equal(t, 3*time.Minute, cfg.OnlineWindow())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("URL_SIGNING_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			URLSigningSecret:   "0123456789abcdef0123456789abcdef",
			PollSeconds:        60,
			StandbyPollSeconds: 120,
			PairingTTLSeconds:  600,
		}
	}

	t.Run("accepts sane config", func(t *testing.T) {
		assert.NoError(t, base().Validate(true))
	})

	t.Run("rejects non-bcrypt admin password hash", func(t *testing.T) {
		cfg := base()
		cfg.AdminPasswordHash = "plaintext"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts bcrypt admin password hash", func(t *testing.T) {
		cfg := base()
		cfg.AdminPasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects short signing secret in production", func(t *testing.T) {
		cfg := base()
		cfg.URLSigningSecret = "short"
		assert.Error(t, cfg.Validate(true))
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects weak admin token in production", func(t *testing.T) {
		cfg := base()
		cfg.AdminAPIToken = "change-me"
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects non-positive cadences", func(t *testing.T) {
		cfg := base()
		cfg.PollSeconds = 0
		assert.Error(t, cfg.Validate(false))
	})
}
