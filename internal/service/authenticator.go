package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/pquerna/otp/totp"
)

type LoginRequest struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	OTPCode      string
}

// Authenticator is the password grant: it checks the client, the
// principal's credentials and optional second factor, then issues.
type Authenticator struct {
	Clients       ClientResolver
	Principals    PrincipalLookup
	Issuer        TokenIssuer
	LookupTimeout time.Duration
}

func (s *Authenticator) Login(ctx context.Context, req LoginRequest) (tokenx.IssuedTokenPair, error) {
	l := slogx.FromContext(ctx).With(slog.String("client_id", req.ClientID))

	req.Username = strings.TrimSpace(req.Username)
	req.OTPCode = strings.TrimSpace(req.OTPCode)

	rc, err := s.Clients.Resolve(ctx, req.ClientID)
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}

	// Clients without a stored secret hash are public.
	if hash := rc.Config.ClientSecretHash; hash != "" {
		if req.ClientSecret == "" || cryptox.VerifyPassword(req.ClientSecret, hash) != nil {
			l.Info("client authentication failed")
			return tokenx.IssuedTokenPair{}, fmt.Errorf("%w: client authentication failed", tokenx.ErrInvalidCredentials)
		}
	}

	p, err := lookupPrincipal(ctx, s.Principals, s.LookupTimeout, req.Username)
	if errors.Is(err, store.ErrNotFound) {
		l.Info("login for unknown principal", slog.String("username", req.Username))
		return tokenx.IssuedTokenPair{}, tokenx.ErrInvalidCredentials
	}
	if err != nil {
		return tokenx.IssuedTokenPair{}, err
	}

	if p.PasswordHash == "" || cryptox.VerifyPassword(req.Password, p.PasswordHash) != nil {
		l.Info("password mismatch", slog.String("username", req.Username))
		return tokenx.IssuedTokenPair{}, tokenx.ErrInvalidCredentials
	}

	if err := p.Status(); err != nil {
		l.Info("login refused for inactive principal", slog.String("username", req.Username), slog.Any("reason", err))
		return tokenx.IssuedTokenPair{}, err
	}

	if p.MFASecret != "" {
		if req.OTPCode == "" {
			return tokenx.IssuedTokenPair{}, tokenx.ErrMFARequired
		}
		if !totp.Validate(req.OTPCode, p.MFASecret) {
			l.Info("invalid one-time code", slog.String("username", req.Username))
			return tokenx.IssuedTokenPair{}, fmt.Errorf("%w: invalid one-time code", tokenx.ErrInvalidCredentials)
		}
	}

	return s.Issuer.Issue(ctx, req.ClientID, p)
}
