package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/registry"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// ClientResolver resolves a client id to its configuration and keys.
// *registry.CredentialRegistry satisfies it.
type ClientResolver interface {
	Resolve(ctx context.Context, clientID string) (*registry.ResolvedClient, error)
}

// ClaimsSource finds the claims provider bound to a client.
// *registry.ClaimsRegistry satisfies it.
type ClaimsSource interface {
	ProviderFor(clientID string) (registry.ClaimsProvider, error)
}

// Issuer mints access/refresh pairs. Issuance is always fresh.
type Issuer struct {
	Clients ClientResolver
	Claims  ClaimsSource

	// Issuer is the "iss" claim written into and required of every token.
	Issuer string

	// ClaimsKey names the payload key holding the provider's claims map.
	ClaimsKey string

	Now func() time.Time
}

func (s *Issuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Issuer) claimsKey() string {
	if s.ClaimsKey == "" {
		return jwtx.DefaultClaimsKey
	}
	return s.ClaimsKey
}

// Issue mints a token pair for p under clientID.
//
// Errors: tokenx.ErrUnknownClient, tokenx.ErrUpstreamTimeout and
// tokenx.ErrSigningFailed from client resolution,
// tokenx.ErrClaimsProductionFailed when the client's provider is missing or
// fails, tokenx.ErrSigningFailed when signing or sealing fails.
func (s *Issuer) Issue(ctx context.Context, clientID string, p domain.Principal) (tokenx.IssuedTokenPair, error) {
	l := slogx.FromContext(ctx)

	rc, err := s.Clients.Resolve(ctx, clientID)
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}

	provider, err := s.Claims.ProviderFor(clientID)
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}
	custom, err := provider.ProduceClaims(ctx, p)
	if err != nil {
		l.Warn("claims provider failed",
			slog.String("client_id", clientID),
			slog.String("subject", p.Username),
			slog.Any("error", err),
		)
		return tokenx.IssuedTokenPair{}, fmt.Errorf("%w: %v", tokenx.ErrClaimsProductionFailed, err)
	}

	now := s.now().UTC().Truncate(time.Second)
	cfg := rc.Config

	access, err := s.mint(rc, p.Username, jwtx.TypeAccess, custom, now, cfg.AccessTTL())
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}
	refresh, err := s.mint(rc, p.Username, jwtx.TypeRefresh, custom, now, cfg.RefreshTTL())
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}

	l.Info("issued token pair",
		slog.String("client_id", clientID),
		slog.String("subject", p.Username),
		slog.Bool("sealed", cfg.UseEncryption),
	)

	return tokenx.IssuedTokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ClientID:         clientID,
		Subject:          p.Username,
		TokenType:        cfg.TokenTypeLabel(),
		AccessExpiresAt:  now.Add(cfg.AccessTTL()),
		RefreshExpiresAt: now.Add(cfg.RefreshTTL()),
		ExpiresIn:        cfg.AccessTTL(),
		RefreshExpiresIn: cfg.RefreshTTL(),
	}, nil
}

func (s *Issuer) mint(
	rc *registry.ResolvedClient,
	subject, typ string,
	custom map[string]any,
	now time.Time,
	ttl time.Duration,
) (string, error) {
	clientID := rc.Config.ClientID
	claims := jwtx.NewClaims(s.Issuer, subject, clientID, typ, custom, s.claimsKey(), now, ttl)

	token, err := rc.Keys.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("%w: %s token for %s: %v", tokenx.ErrSigningFailed, typ, clientID, err)
	}
	if rc.Sealer == nil {
		return token, nil
	}

	sealed, err := rc.Sealer.Seal(token, clientID)
	if err != nil {
		return "", fmt.Errorf("%w: seal %s token for %s: %v", tokenx.ErrSigningFailed, typ, clientID, err)
	}
	return sealed, nil
}
