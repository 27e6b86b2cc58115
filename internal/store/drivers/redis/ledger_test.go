package redis_test

import (
	"context"
	"testing"
	"time"

	ledger "github.com/aussiebroadwan/tollgate/internal/store/drivers/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis, skipping the test when Docker is not
// available.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLedgerConsumesOnce(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	l, err := ledger.NewLedger(ctx, client)
	require.NoError(t, err)
	require.NoError(t, l.Ping(ctx))

	exp := time.Now().Add(time.Minute)

	first, err := l.ConsumeRefreshToken(ctx, "01J0LEDGER", "acme", "alice", exp)
	require.NoError(t, err)
	require.True(t, first)

	first, err = l.ConsumeRefreshToken(ctx, "01J0LEDGER", "acme", "alice", exp)
	require.NoError(t, err)
	require.False(t, first)

	ttl, err := client.TTL(ctx, "rotated:01J0LEDGER").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 50*time.Second)
	require.LessOrEqual(t, ttl, time.Minute)
}

func TestLedgerKeepsExpiredTokensBriefly(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	l, err := ledger.NewLedger(ctx, client)
	require.NoError(t, err)

	first, err := l.ConsumeRefreshToken(ctx, "01J0EXPIRED", "acme", "alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, first)

	ttl, err := client.TTL(ctx, "rotated:01J0EXPIRED").Result()
	require.NoError(t, err)
	require.Positive(t, ttl)
}

func TestNewLedgerRejectsNil(t *testing.T) {
	_, err := ledger.NewLedger(context.Background(), nil)
	require.Error(t, err)
}
