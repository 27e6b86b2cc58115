package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/registry"
	"github.com/aussiebroadwan/tollgate/internal/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

const hmacSecret = "0123456789abcdef0123456789abcdef"

// fakeLoader is an in-memory client store that counts lookups.
type fakeLoader struct {
	mu      sync.Mutex
	clients map[string]domain.ClientConfig
	calls   atomic.Int64
	block   bool
}

func newFakeLoader(clients ...domain.ClientConfig) *fakeLoader {
	l := &fakeLoader{clients: map[string]domain.ClientConfig{}}
	for _, c := range clients {
		l.put(c)
	}
	return l
}

func (l *fakeLoader) put(c domain.ClientConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients[c.ClientID] = c
}

func (l *fakeLoader) GetClient(ctx context.Context, clientID string) (domain.ClientConfig, error) {
	l.calls.Add(1)
	if l.block {
		<-ctx.Done()
		return domain.ClientConfig{}, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[clientID]
	if !ok {
		return domain.ClientConfig{}, store.ErrNotFound
	}
	return c, nil
}

func hsClient(id string) domain.ClientConfig {
	return domain.ClientConfig{
		ClientID:               id,
		SignatureSecret:        hmacSecret,
		SignatureAlgorithm:     "HS256",
		ClaimsProviderID:       registry.ProviderAuthorities,
		AccessTokenTTLSeconds:  300,
		RefreshTokenTTLSeconds: 3600,
	}
}

func newRegistry(t *testing.T, loader registry.ClientLoader, secrets registry.SecretResolver, cfg registry.Config) *registry.CredentialRegistry {
	t.Helper()
	r, err := registry.NewCredentialRegistry(loader, secrets, cfg)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestResolveCachesSuccessfulLookups(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader(hsClient("acme"))
	r := newRegistry(t, loader, nil, registry.Config{})

	first, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, jwtx.HS256, first.Keys.Algorithm())
	require.Nil(t, first.Sealer)
	require.True(t, r.Cached("acme"))

	second, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.EqualValues(t, 1, loader.calls.Load(), "hit within TTL must not touch the store")
}

func TestResolveUnknownClientIsNotCached(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader()
	r := newRegistry(t, loader, nil, registry.Config{})

	_, err := r.Resolve(context.Background(), "ghost")
	require.ErrorIs(t, err, tokenx.ErrUnknownClient)
	require.False(t, r.Cached("ghost"))

	loader.put(hsClient("ghost"))

	rc, err := r.Resolve(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, "ghost", rc.Config.ClientID)
	require.EqualValues(t, 2, loader.calls.Load())
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader(hsClient("acme"))
	r := newRegistry(t, loader, nil, registry.Config{TTL: 50 * time.Millisecond})

	_, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	require.False(t, r.Cached("acme"))

	_, err = r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	require.EqualValues(t, 2, loader.calls.Load())
}

func TestResolveLookupTimeout(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader()
	loader.block = true
	r := newRegistry(t, loader, nil, registry.Config{LookupTimeout: 20 * time.Millisecond})

	_, err := r.Resolve(context.Background(), "acme")
	require.ErrorIs(t, err, tokenx.ErrUpstreamTimeout)
	require.False(t, r.Cached("acme"))
}

func TestResolveStoreFailureIsNotTaxonomy(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk on fire")
	loader := ClientLoaderFunc(func(context.Context, string) (domain.ClientConfig, error) {
		return domain.ClientConfig{}, boom
	})
	r := newRegistry(t, loader, nil, registry.Config{})

	_, err := r.Resolve(context.Background(), "acme")
	require.ErrorIs(t, err, boom)
	require.Empty(t, tokenx.Code(err))
}

func TestResolveInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*domain.ClientConfig)
	}{
		{"refresh not longer than access", func(c *domain.ClientConfig) { c.RefreshTokenTTLSeconds = c.AccessTokenTTLSeconds }},
		{"zero access ttl", func(c *domain.ClientConfig) { c.AccessTokenTTLSeconds = 0 }},
		{"unknown algorithm", func(c *domain.ClientConfig) { c.SignatureAlgorithm = "none" }},
		{"short hmac secret", func(c *domain.ClientConfig) { c.SignatureSecret = "short" }},
		{"rsa without pem", func(c *domain.ClientConfig) { c.SignatureAlgorithm = "RS256" }},
		{"undecryptable cipher secret", func(c *domain.ClientConfig) {
			c.SignatureSecret = cryptox.CipherPrefix + "bm90LWEtc2VhbGVkLXNlY3JldA=="
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := hsClient("acme")
			tt.mutate(&c)
			r := newRegistry(t, newFakeLoader(c), nil, registry.Config{})

			_, err := r.Resolve(context.Background(), "acme")
			require.ErrorIs(t, err, tokenx.ErrSigningFailed)
			require.False(t, r.Cached("acme"))
		})
	}
}

func TestResolveCipherSecretsOncePerPopulation(t *testing.T) {
	t.Parallel()

	sealed, err := cryptox.SealSecret([]byte(hmacSecret))
	require.NoError(t, err)

	c := hsClient("vault")
	c.SignatureSecret = sealed

	var resolved atomic.Int64
	secrets := registry.SecretResolverFunc(func(raw string) ([]byte, error) {
		resolved.Add(1)
		return registry.CipherSecrets{}.ResolveSecret(raw)
	})

	r := newRegistry(t, newFakeLoader(c), secrets, registry.Config{})
	for range 5 {
		rc, err := r.Resolve(context.Background(), "vault")
		require.NoError(t, err)
		require.Equal(t, jwtx.HS256, rc.Keys.Algorithm())
	}
	require.EqualValues(t, 1, resolved.Load())
}

func TestResolveBuildsSealer(t *testing.T) {
	t.Parallel()

	derived := hsClient("derived")
	derived.UseEncryption = true

	explicit := hsClient("explicit")
	explicit.UseEncryption = true
	explicit.EncryptionSecret = "a-separate-sealing-secret"

	r := newRegistry(t, newFakeLoader(derived, explicit), nil, registry.Config{})

	for _, id := range []string{"derived", "explicit"} {
		rc, err := r.Resolve(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, rc.Sealer)

		sealed, err := rc.Sealer.Seal("a.b.c", id)
		require.NoError(t, err)
		opened, err := rc.Sealer.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, "a.b.c", opened)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader(hsClient("acme"))
	r := newRegistry(t, loader, nil, registry.Config{})

	_, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)

	r.Invalidate("acme")
	require.False(t, r.Cached("acme"))

	_, err = r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	require.EqualValues(t, 2, loader.calls.Load())
}

type ClientLoaderFunc func(ctx context.Context, clientID string) (domain.ClientConfig, error)

func (f ClientLoaderFunc) GetClient(ctx context.Context, clientID string) (domain.ClientConfig, error) {
	return f(ctx, clientID)
}
