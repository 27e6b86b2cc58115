package tollgate_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/edge"
	gatewayhttp "github.com/aussiebroadwan/tollgate/internal/gateway/http"
	"github.com/aussiebroadwan/tollgate/internal/tollgate/app"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

/*
 * End-to-end stack: the token service application, the edge cache and the
 * gateway in front of an echo backend, all in process over loopback.
 */

const (
	password = "correct horse"

	clientsYAML = `
clients:
  - client_id: acme
    signature_secret: 0123456789abcdef0123456789abcdef
    signature_algorithm: HS256
    claims_provider: authorities
    access_token_ttl: 5m
    refresh_token_ttl: 1h
  - client_id: globex
    signature_secret: fedcba9876543210fedcba9876543210
    signature_algorithm: HS384
    use_encryption: true
    claims_provider: spring-roles
    access_token_ttl: 5m
    refresh_token_ttl: 1h
principals:
  - username: alice
    password: correct horse
    authorities: [read, write]
`
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stack struct {
	tokenService *httptest.Server
	gateway      *httptest.Server
	cache        *edge.Cache

	// sdk talks to the token service through the gateway's public route.
	sdk *authsdk.Client
}

func setupStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)
	t.Cleanup(func() { cryptox.SetPepperPath("") })

	clientsFile := filepath.Join(dir, "clients.yaml")
	require.NoError(t, os.WriteFile(clientsFile, []byte(clientsYAML), 0o600))

	cfg := app.Config{
		Issuer:               "tollgate-e2e",
		DatabaseFile:         filepath.Join(dir, "tollgate.db"),
		ClientsFile:          clientsFile,
		AdminAuthority:       "TOLLGATE_ADMIN",
		PepperFile:           filepath.Join(dir, "pepper"),
		HousekeepingInterval: time.Hour,
		ShutdownGracePeriod:  time.Second,
		Env:                  "dev",
		LogLevel:             "error",
		LogFormat:            "text",
	}

	require.NoError(t, app.ConfigureSecrets(cfg))
	st, err := app.OpenStore(cfg)
	require.NoError(t, err)
	doc, _, err := app.ReadClientsFile(clientsFile)
	require.NoError(t, err)
	_, err = app.Seed(ctx, st, doc)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	application, err := app.New(ctx, cfg)
	require.NoError(t, err)
	tokenService := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		tokenService.Close()
		_ = application.Shutdown()
	})

	cache, err := edge.New(authsdk.NewClient(tokenService.URL, time.Second), edge.Config{
		TTL:    time.Minute,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoed{Path: r.URL.Path, Headers: r.Header})
	}))
	t.Cleanup(backend.Close)

	private, err := gatewayhttp.ParseRoutes("/api="+backend.URL, false)
	require.NoError(t, err)
	public, err := gatewayhttp.ParseRoutes("/v1/oauth2/token="+tokenService.URL, true)
	require.NoError(t, err)

	router, err := gatewayhttp.NewRouter(gatewayhttp.Options{
		Authorizer: cache,
		Retry:      gatewayhttp.RetryPolicy{Retries: 1, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		Routes:     append(private, public...),
		Readiness:  authsdk.NewClient(tokenService.URL, time.Second),
		Version:    "e2e",
	})
	require.NoError(t, err)
	gateway := httptest.NewServer(router)
	t.Cleanup(gateway.Close)

	return &stack{
		tokenService: tokenService,
		gateway:      gateway,
		cache:        cache,
		sdk:          authsdk.NewClient(gateway.URL, 2*time.Second),
	}
}

type echoed struct {
	Path    string      `json:"path"`
	Headers http.Header `json:"headers"`
}

func (s *stack) login(t *testing.T, clientID string) *authsdk.TokenResponse {
	t.Helper()
	tokens, err := s.sdk.Login(context.Background(), authsdk.LoginRequest{
		ClientID: clientID,
		Username: "alice",
		Password: password,
	})
	require.NoError(t, err)
	return tokens
}

// call sends GET path through the gateway with an optional bearer token.
func (s *stack) call(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, s.gateway.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
