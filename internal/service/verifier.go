package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// Verifier checks tokens minted by Issuer. It has no side effects and is
// safe for concurrent use.
type Verifier struct {
	Clients ClientResolver

	// Issuer, when set, must match the token's "iss" claim.
	Issuer    string
	ClaimsKey string

	Now func() time.Time
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Verifier) claimsKey() string {
	if v.ClaimsKey == "" {
		return jwtx.DefaultClaimsKey
	}
	return v.ClaimsKey
}

// Verify accepts access and refresh tokens alike.
func (v *Verifier) Verify(ctx context.Context, raw string) (tokenx.VerifiedIdentity, error) {
	return v.verify(ctx, raw, "")
}

// VerifyAccess accepts only access tokens, failing others with
// tokenx.ErrNotAnAccessToken before expiry is considered.
func (v *Verifier) VerifyAccess(ctx context.Context, raw string) (tokenx.VerifiedIdentity, error) {
	return v.verify(ctx, raw, tokenx.TokenTypeAccess)
}

// VerifyRefresh accepts only refresh tokens, failing others with
// tokenx.ErrNotARefreshToken before expiry is considered.
func (v *Verifier) VerifyRefresh(ctx context.Context, raw string) (tokenx.VerifiedIdentity, error) {
	return v.verify(ctx, raw, tokenx.TokenTypeRefresh)
}

func (v *Verifier) verify(ctx context.Context, raw string, want tokenx.TokenType) (tokenx.VerifiedIdentity, error) {
	raw = strings.TrimSpace(raw)

	env, err := jwtx.Inspect(raw)
	if err != nil {
		if errors.Is(err, jwtx.ErrDecrypt) {
			return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrDecryptionFailed, err)
		}
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrMalformedToken, err)
	}

	rc, err := v.Clients.Resolve(ctx, env.ClientID)
	if err != nil {
		// The sealed header is unauthenticated, so its cid proves nothing.
		if env.Sealed && errors.Is(err, tokenx.ErrUnknownClient) {
			return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrDecryptionFailed, err)
		}
		return tokenx.VerifiedIdentity{}, err
	}

	jws := raw
	switch {
	case rc.Sealer != nil && !env.Sealed:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: client %s requires sealed tokens", tokenx.ErrDecryptionFailed, env.ClientID)
	case rc.Sealer == nil && env.Sealed:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: client %s does not seal tokens", tokenx.ErrDecryptionFailed, env.ClientID)
	case rc.Sealer != nil:
		if jws, err = rc.Sealer.Open(raw); err != nil {
			return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrDecryptionFailed, err)
		}
	}

	claims := &jwtx.Claims{CustomKey: v.claimsKey()}
	if err := rc.Keys.Parse(jws, claims); err != nil {
		if errors.Is(err, jwtx.ErrMalformed) {
			return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrMalformedToken, err)
		}
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: %v", tokenx.ErrInvalidSignature, err)
	}

	switch {
	case claims.ClientID != rc.Config.ClientID:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: cid %q signed under %s", tokenx.ErrInvalidSignature, claims.ClientID, rc.Config.ClientID)
	case v.Issuer != "" && claims.Issuer != v.Issuer:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: issuer %q", tokenx.ErrInvalidSignature, claims.Issuer)
	case claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: missing sub, exp or iat", tokenx.ErrMalformedToken)
	}

	typ := tokenx.TokenType(claims.Type)
	switch {
	case want == tokenx.TokenTypeRefresh && typ != tokenx.TokenTypeRefresh:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: typ %q", tokenx.ErrNotARefreshToken, typ)
	case want == tokenx.TokenTypeAccess && typ != tokenx.TokenTypeAccess:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: typ %q", tokenx.ErrNotAnAccessToken, typ)
	case typ != tokenx.TokenTypeAccess && typ != tokenx.TokenTypeRefresh:
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: typ %q", tokenx.ErrMalformedToken, typ)
	}

	exp := claims.ExpiresAt.Time
	if !v.now().Before(exp) {
		return tokenx.VerifiedIdentity{}, fmt.Errorf("%w: at %s", tokenx.ErrTokenExpired, exp.UTC().Format(time.RFC3339))
	}

	return tokenx.VerifiedIdentity{
		Subject:     claims.Subject,
		Authorities: claims.Authorities(tokenx.AuthoritiesClaim),
		ClientID:    claims.ClientID,
		TokenType:   typ,
		TokenID:     claims.ID,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   exp,
		Claims:      claims.Custom,
	}, nil
}
