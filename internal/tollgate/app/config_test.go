package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/tollgate/app"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := app.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "tollgate", cfg.Issuer)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "TOLLGATE_ADMIN", cfg.AdminAuthority)
	require.Equal(t, int64(1000), cfg.ClientCacheCapacity)
	require.Equal(t, 5*time.Minute, cfg.ClientCacheTTL)
	require.Equal(t, 2*time.Second, cfg.ClientLookupTimeout)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Empty(t, cfg.RedisURL)
}

func TestLoadConfigEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TOLLGATE_ISSUER=https://auth.example\n"+
			"TOLLGATE_CLIENT_CACHE_TTL=30s\n"+
			"TOLLGATE_REDIS_URL=redis://localhost:6379/0\n",
	), 0o600))

	// Overload replaces values already in the environment.
	t.Setenv("TOLLGATE_ISSUER", "from-env")
	t.Setenv("TOLLGATE_CLIENT_CACHE_TTL", "1m")
	t.Setenv("TOLLGATE_REDIS_URL", "")

	cfg, err := app.LoadConfig(envFile)
	require.NoError(t, err)
	require.Equal(t, "https://auth.example", cfg.Issuer)
	require.Equal(t, 30*time.Second, cfg.ClientCacheTTL)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadConfigBadDuration(t *testing.T) {
	t.Setenv("TOLLGATE_CLIENT_LOOKUP_TIMEOUT", "soon")

	_, err := app.LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigRejectsReservedClaimsKey(t *testing.T) {
	for _, key := range []string{"exp", "sub", "cid"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv("TOLLGATE_CLAIMS_KEY", key)

			_, err := app.LoadConfig("")
			require.ErrorContains(t, err, "TOLLGATE_CLAIMS_KEY")
		})
	}

	t.Setenv("TOLLGATE_CLAIMS_KEY", "authz")
	cfg, err := app.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "authz", cfg.ClaimsKey)
}

func TestConfigDSN(t *testing.T) {
	require.Equal(t, ":memory:", app.Config{DatabaseFile: ":memory:"}.DSN())
	require.Equal(t,
		"file:data/tollgate.db?_busy_timeout=5000&_journal_mode=WAL",
		app.Config{DatabaseFile: "data/tollgate.db"}.DSN(),
	)
}
