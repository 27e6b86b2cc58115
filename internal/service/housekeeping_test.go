package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/service"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingPrunesExpiredRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now()

	ledger := service.NewMemoryLedger()
	_, err := ledger.ConsumeRefreshToken(ctx, "expired", "acme", "alice", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = ledger.ConsumeRefreshToken(ctx, "live", "acme", "alice", now.Add(time.Hour))
	require.NoError(t, err)

	hk := service.NewHousekeepingService(ledger, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Start()
	require.Eventually(t, func() bool { return ledger.Len() == 1 }, time.Second, 10*time.Millisecond)
	hk.Stop()

	first, err := ledger.ConsumeRefreshToken(ctx, "live", "acme", "alice", now.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, first, "live records survive cleanup")
}

func TestHousekeepingDefaultsInterval(t *testing.T) {
	t.Parallel()
	hk := service.NewHousekeepingService(service.NewMemoryLedger(), slog.Default(), 0)
	require.Equal(t, time.Hour, hk.Interval)
}

func TestHousekeepingStopWithoutStart(t *testing.T) {
	t.Parallel()
	hk := service.NewHousekeepingService(service.NewMemoryLedger(), slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Stop()
	hk.Stop()
}
