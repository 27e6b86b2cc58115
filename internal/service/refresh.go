package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/store"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

const DefaultLookupTimeout = 2 * time.Second

// PrincipalLookup loads a principal by username. store.Principals
// satisfies it.
type PrincipalLookup interface {
	GetPrincipal(ctx context.Context, username string) (domain.Principal, error)
}

// RefreshLedger records consumed refresh token ids. ConsumeRefreshToken
// reports true only the first time a jti is seen.
type RefreshLedger interface {
	ConsumeRefreshToken(ctx context.Context, jti, clientID, subject string, expiresAt time.Time) (bool, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, clientID string, p domain.Principal) (tokenx.IssuedTokenPair, error)
}

type RefreshVerifier interface {
	VerifyRefresh(ctx context.Context, raw string) (tokenx.VerifiedIdentity, error)
}

// RefreshCoordinator exchanges a refresh token for a new pair.
//
// With Principals set the principal is reloaded so authority changes and
// account status take effect on refresh. Without it the principal is
// rebuilt from the token. With Ledger set each refresh token works once;
// without it refresh guarantees freshness only, not revocation.
type RefreshCoordinator struct {
	Verifier RefreshVerifier
	Issuer   TokenIssuer

	Principals    PrincipalLookup
	Ledger        RefreshLedger
	LookupTimeout time.Duration
}

func (s *RefreshCoordinator) Refresh(ctx context.Context, rawRefreshToken string) (tokenx.IssuedTokenPair, error) {
	l := slogx.FromContext(ctx)

	id, err := s.Verifier.VerifyRefresh(ctx, rawRefreshToken)
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}

	principal := domain.Principal{
		Username:    id.Subject,
		Authorities: id.Authorities,
		Enabled:     true,
	}
	if s.Principals != nil {
		principal, err = lookupPrincipal(ctx, s.Principals, s.LookupTimeout, id.Subject)
		if errors.Is(err, store.ErrNotFound) {
			return tokenx.IssuedTokenPair{}, fmt.Errorf("%w: principal %s no longer exists", tokenx.ErrPrincipalDisabled, id.Subject)
		}
		if err != nil {
			return tokenx.IssuedTokenPair{}, err
		}
		if err := principal.Status(); err != nil {
			l.Info("refresh refused for inactive principal",
				slog.String("client_id", id.ClientID),
				slog.String("subject", id.Subject),
				slog.Any("reason", err),
			)
			return tokenx.IssuedTokenPair{}, err
		}
	}

	// Issue before consuming so a failed issuance leaves the refresh token
	// usable for a retry. A pair minted for a reused token is discarded.
	pair, err := s.Issuer.Issue(ctx, id.ClientID, principal)
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}

	if s.Ledger != nil {
		first, err := s.Ledger.ConsumeRefreshToken(ctx, id.TokenID, id.ClientID, id.Subject, id.ExpiresAt)
		if err != nil {
			return tokenx.IssuedTokenPair{}, fmt.Errorf("service: record refresh token: %w", err)
		}
		if !first {
			l.Warn("refresh token reuse detected",
				slog.String("client_id", id.ClientID),
				slog.String("subject", id.Subject),
				slog.String("jti", id.TokenID),
			)
			return tokenx.IssuedTokenPair{}, fmt.Errorf("%w: jti %s", tokenx.ErrRefreshTokenReused, id.TokenID)
		}
	}

	return pair, nil
}

// lookupPrincipal bounds a principal lookup by timeout and reports an
// expired deadline as tokenx.ErrUpstreamTimeout. store.ErrNotFound is
// passed through for the caller to interpret.
func lookupPrincipal(ctx context.Context, lookup PrincipalLookup, timeout time.Duration, username string) (domain.Principal, error) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p, err := lookup.GetPrincipal(lookupCtx, username)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.Principal{}, err
	case store.IsTimeout(lookupCtx, err):
		return domain.Principal{}, fmt.Errorf("%w: principal lookup: %v", tokenx.ErrUpstreamTimeout, err)
	default:
		return domain.Principal{}, fmt.Errorf("service: load principal %s: %w", username, err)
	}
}
