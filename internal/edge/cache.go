// Package edge caches token verification outcomes in front of a remote
// verifier so the token service is consulted once per token per TTL.
package edge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCapacity      = 10000
	DefaultTTL           = 30 * time.Second
	DefaultVerifyTimeout = 2 * time.Second
)

// RemoteVerifier is the authority behind the cache. *authsdk.Client
// satisfies it, as does *service.Verifier for in-process use.
type RemoteVerifier interface {
	Verify(ctx context.Context, token string) (tokenx.VerifiedIdentity, error)
}

type Config struct {
	// Capacity bounds the number of cached tokens. The least recently
	// used entry is evicted once it is exceeded.
	Capacity      int
	TTL           time.Duration
	VerifyTimeout time.Duration

	// SweepInterval enables the background sweep of expired entries.
	// Zero leaves expiry purely lazy.
	SweepInterval time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = DefaultVerifyTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// entry is one cached outcome. Exactly one of identity and err is set.
type entry struct {
	identity   tokenx.VerifiedIdentity
	err        error
	insertedAt time.Time
	expiresAt  time.Time
}

// store is a strict LRU bounded by the configured capacity.
type store struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, entry]
}

// get returns a live entry and drops it when its TTL has passed.
func (s *store) get(key string, now time.Time) (entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		return entry{}, false
	}
	if !now.Before(e.expiresAt) {
		s.lru.Remove(key)
		return entry{}, false
	}
	return e, true
}

func (s *store) put(key string, e entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(key, e)
}

func (s *store) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.lru.Keys() {
		if e, ok := s.lru.Peek(key); ok && !now.Before(e.expiresAt) {
			s.lru.Remove(key)
			removed++
		}
	}
	return removed
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Cache maps token fingerprints to verification outcomes. Raw tokens are
// never stored.
type Cache struct {
	remote RemoteVerifier
	cfg    Config
	store  *store
	group  singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(remote RemoteVerifier, cfg Config) (*Cache, error) {
	if remote == nil {
		return nil, errors.New("edge: remote verifier cannot be nil")
	}
	cfg = cfg.withDefaults()

	lru, err := simplelru.NewLRU[string, entry](cfg.Capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("edge: init lru: %w", err)
	}

	return &Cache{
		remote: remote,
		cfg:    cfg,
		store:  &store{lru: lru},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Authorize returns the cached outcome for raw or asks the remote verifier.
// Concurrent misses for the same token share one remote call.
func (c *Cache) Authorize(ctx context.Context, raw string) (tokenx.VerifiedIdentity, error) {
	key := cryptox.FingerprintToken(raw)
	now := c.cfg.Now()

	if e, ok := c.store.get(key, now); ok {
		c.hits.Add(1)
		if e.err == nil && tokenExpired(e.identity, now) {
			e = entry{
				err:        fmt.Errorf("%w: at %s", tokenx.ErrTokenExpired, e.identity.ExpiresAt.UTC().Format(time.RFC3339)),
				insertedAt: now,
				expiresAt:  e.expiresAt,
			}
			c.store.put(key, e)
		}
		return e.identity, e.err
	}
	c.misses.Add(1)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(ctx, key, raw)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return tokenx.VerifiedIdentity{}, res.Err
		}
		return res.Val.(tokenx.VerifiedIdentity), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrUpstreamTimeout, ctx.Err())
		}
		return tokenx.VerifiedIdentity{}, ctx.Err()
	}
}

// fetch runs the remote call detached from the first caller's
// cancellation, since other callers may be waiting on the same result.
func (c *Cache) fetch(ctx context.Context, key, raw string) (tokenx.VerifiedIdentity, error) {
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.VerifyTimeout)
	defer cancel()

	id, err := c.remote.Verify(vctx, raw)
	if err != nil && tokenx.Code(err) == "" && errors.Is(vctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: verify: %v", tokenx.ErrUpstreamTimeout, err)
	}

	now := c.cfg.Now()
	if err == nil && tokenExpired(id, now) {
		err = fmt.Errorf("%w: at %s", tokenx.ErrTokenExpired, id.ExpiresAt.UTC().Format(time.RFC3339))
		id = tokenx.VerifiedIdentity{}
	}

	if !cacheable(err) {
		slogx.FromContext(ctx).Warn("token verification unavailable", slog.Any("error", err))
		return tokenx.VerifiedIdentity{}, err
	}

	c.store.put(key, entry{
		identity:   id,
		err:        err,
		insertedAt: now,
		expiresAt:  now.Add(c.cfg.TTL),
	})
	return id, err
}

// cacheable admits successes and definitive rejections. Timeouts, server
// side failures and errors from outside the taxonomy are retried.
func cacheable(err error) bool {
	if err == nil {
		return true
	}
	return tokenx.Code(err) != "" && authsdk.StatusForError(err) < 500
}

func tokenExpired(id tokenx.VerifiedIdentity, now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

// Sweep removes expired entries and reports how many were dropped.
func (c *Cache) Sweep() int {
	return c.store.sweep(c.cfg.Now())
}

func (c *Cache) Len() int {
	return c.store.len()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

// Start runs the periodic sweep when one is configured. Later calls are
// no-ops.
func (c *Cache) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	if c.cfg.SweepInterval <= 0 {
		close(c.doneCh)
		return
	}
	go c.run()
	c.cfg.Logger.Info("edge cache sweeper started", "interval", c.cfg.SweepInterval)
}

// Stop blocks until a running sweep has finished. It is safe to call
// without Start and more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if !c.started.Load() {
		return
	}
	<-c.doneCh
}

func (c *Cache) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.cfg.Logger.Debug("edge cache sweep", "removed", n)
			}
		case <-c.stopCh:
			return
		}
	}
}
