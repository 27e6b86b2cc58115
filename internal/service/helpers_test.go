package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/registry"
	"github.com/aussiebroadwan/tollgate/internal/service"
	"github.com/aussiebroadwan/tollgate/internal/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://tollgate.test"
	hmacSecret = "0123456789abcdef0123456789abcdef"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store    *sqlite.Store
	clients  *registry.CredentialRegistry
	clock    *fakeClock
	issuer   *service.Issuer
	verifier *service.Verifier
}

// newHarness wires the issuer and verifier over an in-memory store holding
// the given clients, each bound to its configured claims provider.
func newHarness(t *testing.T, clients ...domain.ClientConfig) *harness {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	bindings := make(map[string]string, len(clients))
	for _, c := range clients {
		require.NoError(t, st.Clients().UpsertClient(ctx, c))
		if c.ClaimsProviderID != "" {
			bindings[c.ClientID] = c.ClaimsProviderID
		}
	}

	reg, err := registry.NewCredentialRegistry(st.Clients(), nil, registry.Config{})
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	claims, err := registry.NewClaimsRegistry(bindings)
	require.NoError(t, err)

	clock := newClock()
	return &harness{
		store:   st,
		clients: reg,
		clock:   clock,
		issuer: &service.Issuer{
			Clients: reg,
			Claims:  claims,
			Issuer:  testIssuer,
			Now:     clock.Now,
		},
		verifier: &service.Verifier{
			Clients: reg,
			Issuer:  testIssuer,
			Now:     clock.Now,
		},
	}
}

func acmeClient() domain.ClientConfig {
	return domain.ClientConfig{
		ClientID:               "acme",
		SignatureSecret:        hmacSecret,
		SignatureAlgorithm:     "HS256",
		ClaimsProviderID:       registry.ProviderAuthorities,
		AccessTokenTTLSeconds:  300,
		RefreshTokenTTLSeconds: 3600,
	}
}

func alice() domain.Principal {
	return domain.Principal{
		Username:    "alice",
		Authorities: []string{"read", "write"},
		Enabled:     true,
	}
}
