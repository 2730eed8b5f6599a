package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-kinde-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	for _, envVar := range []string{"STORE", "FOLDER", "CALLBACK_TIMEOUT", "USE_NONCE", "API_RATE", "API_BURST", "LOG_LEVEL"} {
		t.Setenv(envVar, "")
	}
	c := config.New()

	require.Equal(t, config.StoreFile, c.GetStoreKind())
	require.Equal(t, "./data", c.GetDataFolder())
	require.Equal(t, 5*time.Minute, c.GetCallbackTimeout())
	require.True(t, c.GetUseNonce())
	require.Equal(t, 5.0, c.GetAPIRate())
	require.Equal(t, 1, c.GetAPIBurst())
	require.Equal(t, "info", c.GetLogLevel())
}

func TestConfig_Overrides(t *testing.T) {
	t.Run("valid values", func(t *testing.T) {
		t.Setenv("STORE", "SQLite")
		t.Setenv("CALLBACK_TIMEOUT", "30s")
		t.Setenv("USE_NONCE", "false")
		t.Setenv("API_RATE", "0")
		t.Setenv("LOG_LEVEL", "DEBUG")
		c := config.New()

		require.Equal(t, config.StoreSQLite, c.GetStoreKind())
		require.Equal(t, 30*time.Second, c.GetCallbackTimeout())
		require.False(t, c.GetUseNonce())
		require.Zero(t, c.GetAPIRate())
		require.Equal(t, "debug", c.GetLogLevel())
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("STORE", "redis")
		t.Setenv("CALLBACK_TIMEOUT", "soon")
		t.Setenv("USE_NONCE", "maybe")
		t.Setenv("API_BURST", "-2")
		c := config.New()

		require.Equal(t, config.StoreFile, c.GetStoreKind())
		require.Equal(t, 5*time.Minute, c.GetCallbackTimeout())
		require.True(t, c.GetUseNonce())
		require.Equal(t, 1, c.GetAPIBurst())
	})
}
