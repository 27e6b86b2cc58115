package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
	"github.com/aussiebroadwan/tollgate/internal/service"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clientHash, err := cryptox.HashPassword("acme-client-secret")
	require.NoError(t, err)
	passwordHash, err := cryptox.HashPassword("correct horse")
	require.NoError(t, err)

	confidential := acmeClient()
	confidential.ClientSecretHash = clientHash
	public := acmeClient()
	public.ClientID = "spa"

	h := newHarness(t, confidential, public)

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "tollgate", AccountName: "carol"})
	require.NoError(t, err)

	principals := []domain.Principal{
		{Username: "alice", PasswordHash: passwordHash, Authorities: []string{"read"}, Enabled: true},
		{Username: "bob", PasswordHash: passwordHash, Enabled: false},
		{Username: "carol", PasswordHash: passwordHash, Authorities: []string{"read"}, Enabled: true, MFASecret: key.Secret()},
	}
	for _, p := range principals {
		require.NoError(t, h.store.Principals().UpsertPrincipal(ctx, p))
	}

	auth := &service.Authenticator{
		Clients:    h.clients,
		Principals: h.store.Principals(),
		Issuer:     h.issuer,
	}

	validCode, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     service.LoginRequest
		wantErr error
	}{
		{
			name: "confidential client",
			req:  service.LoginRequest{ClientID: "acme", ClientSecret: "acme-client-secret", Username: "alice", Password: "correct horse"},
		},
		{
			name: "public client",
			req:  service.LoginRequest{ClientID: "spa", Username: "alice", Password: "correct horse"},
		},
		{
			name:    "unknown client",
			req:     service.LoginRequest{ClientID: "ghost", Username: "alice", Password: "correct horse"},
			wantErr: tokenx.ErrUnknownClient,
		},
		{
			name:    "wrong client secret",
			req:     service.LoginRequest{ClientID: "acme", ClientSecret: "nope", Username: "alice", Password: "correct horse"},
			wantErr: tokenx.ErrInvalidCredentials,
		},
		{
			name:    "missing client secret",
			req:     service.LoginRequest{ClientID: "acme", Username: "alice", Password: "correct horse"},
			wantErr: tokenx.ErrInvalidCredentials,
		},
		{
			name:    "wrong password",
			req:     service.LoginRequest{ClientID: "spa", Username: "alice", Password: "battery staple"},
			wantErr: tokenx.ErrInvalidCredentials,
		},
		{
			name:    "unknown principal",
			req:     service.LoginRequest{ClientID: "spa", Username: "mallory", Password: "correct horse"},
			wantErr: tokenx.ErrInvalidCredentials,
		},
		{
			name:    "disabled principal",
			req:     service.LoginRequest{ClientID: "spa", Username: "bob", Password: "correct horse"},
			wantErr: tokenx.ErrPrincipalDisabled,
		},
		{
			name:    "second factor missing",
			req:     service.LoginRequest{ClientID: "spa", Username: "carol", Password: "correct horse"},
			wantErr: tokenx.ErrMFARequired,
		},
		{
			name:    "second factor wrong",
			req:     service.LoginRequest{ClientID: "spa", Username: "carol", Password: "correct horse", OTPCode: "000000x"},
			wantErr: tokenx.ErrInvalidCredentials,
		},
		{
			name: "second factor valid",
			req:  service.LoginRequest{ClientID: "spa", Username: "carol", Password: "correct horse", OTPCode: validCode},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := auth.Login(ctx, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			id, err := h.verifier.VerifyAccess(ctx, pair.AccessToken)
			require.NoError(t, err)
			require.Equal(t, tt.req.Username, id.Subject)
			require.Equal(t, tt.req.ClientID, id.ClientID)
		})
	}
}

func TestLoginPrincipalLookupTimeout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, acmeClient())

	auth := &service.Authenticator{
		Clients:       h.clients,
		Principals:    slowPrincipals{},
		Issuer:        h.issuer,
		LookupTimeout: 10 * time.Millisecond,
	}

	_, err := auth.Login(context.Background(), service.LoginRequest{ClientID: "acme", Username: "alice", Password: "x"})
	require.ErrorIs(t, err, tokenx.ErrUpstreamTimeout)
}
