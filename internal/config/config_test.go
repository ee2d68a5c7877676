package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/ordercore?sslmode=disable")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 5*time.Second, cfg.CompensationTimeout)
	assert.Equal(t, 256, cfg.NotifyBuffer)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProd())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RESERVATION_TTL", "2m")
	t.Setenv("NOTIFY_BUFFER", "16")
	t.Setenv("CORS_ORIGINS", "https://shop.example, https://pos.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 16, cfg.NotifyBuffer)
	assert.Equal(t, []string{"https://shop.example", "https://pos.example"}, cfg.CORSOrigins)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.EqualError(t, err, "JWT_SECRET is required")
	})

	t.Run("postgres vars required without url", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DATABASE_URL", "")
		t.Setenv("POSTGRES_PORT", "")
		_, err := Load()
		assert.EqualError(t, err, "POSTGRES_PORT is required")
	})

	t.Run("bad duration", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("COMPENSATION_TIMEOUT", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "COMPENSATION_TIMEOUT must be duration")
	})

	t.Run("non positive ttl", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("RESERVATION_TTL", "0s")
		_, err := Load()
		assert.EqualError(t, err, "RESERVATION_TTL must be positive")
	})
}
