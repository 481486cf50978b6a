package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, c.HTTPTimeout)
	require.Equal(t, 5, c.ReconnectAttempts)
	require.Equal(t, 3*time.Second, c.ReconnectDelay)
	require.Equal(t, 10*time.Second, c.StompHeartbeat)
	require.Equal(t, 30*time.Second, c.GameHeartbeat)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GAMELINK_API_URL", "http://api.test/api")
	t.Setenv("GAMELINK_RECONNECT_ATTEMPTS", "2")
	t.Setenv("GAMELINK_RECONNECT_DELAY", "1500")
	t.Setenv("GAMELINK_GAME_HEARTBEAT", "250ms")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://api.test/api", c.APIURL)
	require.Equal(t, 2, c.ReconnectAttempts)
	require.Equal(t, 1500*time.Millisecond, c.ReconnectDelay)
	require.Equal(t, 250*time.Millisecond, c.GameHeartbeat)
}

func TestLoad_ConversionFailed(t *testing.T) {
	t.Setenv("GAMELINK_RECONNECT_ATTEMPTS", "five")

	_, err := Load()
	require.ErrorIs(t, err, ErrConversionFailed)
}

func TestLoad_ReconnectAttemptsBounded(t *testing.T) {
	for _, v := range []string{"0", "-1"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("GAMELINK_RECONNECT_ATTEMPTS", v)

			_, err := Load()
			require.ErrorIs(t, err, ErrConversionFailed)
			require.Contains(t, err.Error(), "GAMELINK_RECONNECT_ATTEMPTS")
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(p, []byte("GAMELINK_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("GAMELINK_LOG_LEVEL") })

	require.NoError(t, LoadDotEnv(p, filepath.Join(dir, "missing.env")))

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "debug", c.LogLevel)
}
