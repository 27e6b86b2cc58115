package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/store"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/dgraph-io/ristretto/v2"
)

const (
	DefaultCapacity      = 1000
	DefaultTTL           = 5 * time.Minute
	DefaultLookupTimeout = 2 * time.Second
)

// ClientLoader is the durable client lookup. store.Clients satisfies it.
type ClientLoader interface {
	GetClient(ctx context.Context, clientID string) (domain.ClientConfig, error)
}

// ResolvedClient is a client configuration together with the key material
// built from it. Sealer is nil unless the client seals its tokens.
type ResolvedClient struct {
	Config domain.ClientConfig
	Keys   *jwtx.Keys
	Sealer *jwtx.Sealer
}

type Config struct {
	Capacity      int64
	TTL           time.Duration
	LookupTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	return c
}

// CredentialRegistry resolves client ids to ready-to-use key material,
// keeping successful lookups in a bounded TTL cache. Failed lookups are
// never cached, so a client provisioned after a miss resolves on the next
// call.
type CredentialRegistry struct {
	loader  ClientLoader
	secrets SecretResolver
	cfg     Config
	cache   *ristretto.Cache[string, *ResolvedClient]
}

func NewCredentialRegistry(loader ClientLoader, secrets SecretResolver, cfg Config) (*CredentialRegistry, error) {
	if secrets == nil {
		secrets = CipherSecrets{}
	}
	cfg = cfg.withDefaults()

	cache, err := ristretto.NewCache(&ristretto.Config[string, *ResolvedClient]{
		NumCounters:        cfg.Capacity * 10,
		MaxCost:            cfg.Capacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("registry: init client cache: %w", err)
	}

	return &CredentialRegistry{
		loader:  loader,
		secrets: secrets,
		cfg:     cfg,
		cache:   cache,
	}, nil
}

// Resolve returns the resolved client for clientID.
//
// Errors: tokenx.ErrUnknownClient when the store has no such client,
// tokenx.ErrUpstreamTimeout when the lookup deadline passes and
// tokenx.ErrSigningFailed when the stored configuration or its key material
// is unusable.
func (r *CredentialRegistry) Resolve(ctx context.Context, clientID string) (*ResolvedClient, error) {
	if rc, ok := r.cache.Get(clientID); ok {
		return rc, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	defer cancel()

	cfg, err := r.loader.GetClient(lookupCtx, clientID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", tokenx.ErrUnknownClient, clientID)
	case store.IsTimeout(lookupCtx, err):
		return nil, fmt.Errorf("%w: client lookup %s: %v", tokenx.ErrUpstreamTimeout, clientID, err)
	default:
		return nil, fmt.Errorf("registry: load client %s: %w", clientID, err)
	}

	rc, err := r.build(cfg)
	if err != nil {
		slogx.FromContext(ctx).Error("client configuration unusable",
			slog.String("client_id", clientID),
			slog.Any("error", err),
		)
		return nil, err
	}

	r.cache.SetWithTTL(clientID, rc, 1, r.cfg.TTL)
	r.cache.Wait()
	return rc, nil
}

// build validates cfg and prepares its keys. Every failure is
// tokenx.ErrSigningFailed since the client cannot mint or check tokens.
func (r *CredentialRegistry) build(cfg domain.ClientConfig) (*ResolvedClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", tokenx.ErrSigningFailed, err)
	}

	alg, err := jwtx.ParseAlgorithm(cfg.SignatureAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", tokenx.ErrSigningFailed, cfg.ClientID, err)
	}

	secret, err := r.secrets.ResolveSecret(cfg.SignatureSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: resolve signature secret: %v", tokenx.ErrSigningFailed, cfg.ClientID, err)
	}

	keys, err := jwtx.NewKeys(alg, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", tokenx.ErrSigningFailed, cfg.ClientID, err)
	}

	rc := &ResolvedClient{Config: cfg, Keys: keys}
	if !cfg.UseEncryption {
		return rc, nil
	}

	sealKey := secret
	if cfg.EncryptionSecret != "" {
		sealKey, err = r.secrets.ResolveSecret(cfg.EncryptionSecret)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: resolve encryption secret: %v", tokenx.ErrSigningFailed, cfg.ClientID, err)
		}
	}

	rc.Sealer, err = jwtx.NewSealer(sealKey, cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", tokenx.ErrSigningFailed, cfg.ClientID, err)
	}
	return rc, nil
}

// Invalidate drops clientID from the cache. The next Resolve reloads it.
func (r *CredentialRegistry) Invalidate(clientID string) {
	r.cache.Del(clientID)
}

// Cached reports whether clientID has a live cache entry.
func (r *CredentialRegistry) Cached(clientID string) bool {
	_, ok := r.cache.Get(clientID)
	return ok
}

func (r *CredentialRegistry) Close() {
	r.cache.Close()
}
