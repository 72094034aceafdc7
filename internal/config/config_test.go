package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MAYAU_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "GoogleOAuth", cfg.WorkOS.Provider)
	require.Equal(t, 15*time.Minute, cfg.Scheduler.OverdueSweepInterval)
	require.False(t, cfg.OTel.Enabled())
	require.False(t, cfg.Storage.Enabled())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("MAYAU_ENV", "test")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("MAYAU_ENV", "production")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("MASTER_PASSWORD_HASH", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SESSION_SECRET", "prod-secret")
	t.Setenv("MASTER_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("MAYAU_ENV", "test")
	t.Setenv("SESSION_MAX_AGE_SECONDS", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 86400*7, cfg.Session.MaxAge)
}
