// Package redis keeps the refresh token ledger in Redis so that several
// token service replicas agree on which refresh tokens were already used.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rotatedPrefix = "rotated:"

// minTTL keeps a record around even for a token that expires as it is used.
const minTTL = time.Second

type Ledger struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewLedger checks the connection and returns a ledger backed by client.
func NewLedger(ctx context.Context, client redis.UniversalClient) (*Ledger, error) {
	if client == nil {
		return nil, errors.New("redis: client cannot be nil")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}
	return &Ledger{client: client, now: time.Now}, nil
}

// ConsumeRefreshToken sets rotated:<jti> with NX so exactly one caller wins.
// The key lives as long as the token could still be presented.
func (l *Ledger) ConsumeRefreshToken(
	ctx context.Context,
	jti, clientID, subject string,
	expiresAt time.Time,
) (bool, error) {
	if jti == "" {
		return false, errors.New("redis: empty jti")
	}

	ttl := max(expiresAt.Sub(l.now()), minTTL)

	ok, err := l.client.SetNX(ctx, rotatedPrefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: consume %s for %s/%s: %w", jti, clientID, subject, err)
	}
	return ok, nil
}

// Ping reports whether Redis is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
