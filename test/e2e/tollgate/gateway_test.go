package tollgate_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

// TestLoginAndCallBackend covers the whole path:
// 1. Login through the gateway's public token route
// 2. Call a protected backend with the access token
// 3. The backend sees the verified identity
// 4. A repeated call is answered by the edge cache
func TestLoginAndCallBackend(t *testing.T) {
	s := setupStack(t)

	for _, clientID := range []string{"acme", "globex"} {
		t.Run(clientID, func(t *testing.T) {
			tokens := s.login(t, clientID)

			resp := s.call(t, "/api/widgets", tokens.AccessToken)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			got := decode[echoed](t, resp)
			require.Equal(t, "/api/widgets", got.Path)
			require.Equal(t, "alice", got.Headers.Get("X-Auth-Subject"))
			require.Equal(t, clientID, got.Headers.Get("X-Auth-Client-ID"))
			require.NotEmpty(t, got.Headers.Get("X-Correlation-ID"))

			before := s.cache.Stats()
			require.Equal(t, http.StatusOK, s.call(t, "/api/widgets", tokens.AccessToken).StatusCode)
			after := s.cache.Stats()
			require.Equal(t, before.Hits+1, after.Hits)
			require.Equal(t, before.Misses, after.Misses)
		})
	}
}

func TestAuthoritiesFollowClientProvider(t *testing.T) {
	s := setupStack(t)

	acme := decode[echoed](t, s.call(t, "/api/me", s.login(t, "acme").AccessToken))
	require.Equal(t, "read,write", acme.Headers.Get("X-Auth-Authorities"))

	globex := decode[echoed](t, s.call(t, "/api/me", s.login(t, "globex").AccessToken))
	require.Equal(t, "ROLE_READ,ROLE_WRITE", globex.Headers.Get("X-Auth-Authorities"))
}

func TestGatewayRejections(t *testing.T) {
	s := setupStack(t)
	tokens := s.login(t, "acme")

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"missing token", "", http.StatusUnauthorized, authsdk.ErrorCodeInvalidRequest},
		{"malformed token", "not-a-token", http.StatusUnauthorized, tokenx.ErrMalformedToken.Error()},
		{"refresh token as bearer", tokens.RefreshToken, http.StatusUnauthorized, tokenx.ErrNotAnAccessToken.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.call(t, "/api/widgets", tt.token)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			require.Equal(t, tt.wantCode, decode[authsdk.ErrorResponse](t, resp).Error)
		})
	}
}

func TestRefreshRotationThroughGateway(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	tokens := s.login(t, "globex")

	next, err := s.sdk.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, tokens.AccessToken, next.AccessToken)
	require.Equal(t, http.StatusOK, s.call(t, "/api/widgets", next.AccessToken).StatusCode)

	_, err = s.sdk.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, tokenx.ErrRefreshTokenReused)
}

// TestTokenServiceOutage checks that cached outcomes keep serving while the
// token service is down and that new tokens fail with a gateway error.
func TestTokenServiceOutage(t *testing.T) {
	s := setupStack(t)
	cached := s.login(t, "acme")
	fresh := s.login(t, "acme")
	require.Equal(t, http.StatusOK, s.call(t, "/api/widgets", cached.AccessToken).StatusCode)

	s.tokenService.Close()

	require.Equal(t, http.StatusOK, s.call(t, "/api/widgets", cached.AccessToken).StatusCode)

	resp := s.call(t, "/api/widgets", fresh.AccessToken)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
