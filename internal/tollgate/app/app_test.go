package app_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/tollgate/app"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const clientsYAML = `
clients:
  - client_id: acme
    signature_secret: 0123456789abcdef0123456789abcdef
    signature_algorithm: HS256
    claims_provider: authorities
    access_token_ttl: 5m
    refresh_token_ttl: 24h
  - client_id: initech
    client_secret: s3cret
    signature_secret: fedcba9876543210fedcba9876543210
    signature_algorithm: HS512
    use_encryption: true
    claims_provider: spring-roles
    token_type: Token
    access_token_ttl: 1m
    refresh_token_ttl: 1h
principals:
  - username: alice
    password: correct horse
    authorities: [read, write]
  - username: mallory
    password: correct horse
    authorities: [read]
    disabled: true
`

func testConfig(t *testing.T) app.Config {
	t.Helper()
	dir := t.TempDir()
	t.Cleanup(cryptox.ResetMasterKeyForTesting)
	t.Cleanup(func() { cryptox.SetPepperPath("") })

	clientsFile := filepath.Join(dir, "clients.yaml")
	require.NoError(t, os.WriteFile(clientsFile, []byte(clientsYAML), 0o600))

	return app.Config{
		Issuer:               "tollgate-test",
		Addr:                 "127.0.0.1:0",
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
}

func seed(t *testing.T, cfg app.Config) app.SeedResult {
	t.Helper()
	require.NoError(t, app.ConfigureSecrets(cfg))

	st, err := app.OpenStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	file, found, err := app.ReadClientsFile(cfg.ClientsFile)
	require.NoError(t, err)
	require.True(t, found)

	res, err := app.Seed(context.Background(), st, file)
	require.NoError(t, err)
	return res
}

func TestSeed(t *testing.T) {
	cfg := testConfig(t)
	res := seed(t, cfg)
	require.Equal(t, app.SeedResult{Clients: 2, Principals: 2}, res)

	st, err := app.OpenStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	initech, err := st.Clients().GetClient(ctx, "initech")
	require.NoError(t, err)
	require.NotEmpty(t, initech.ClientSecretHash)
	require.NoError(t, cryptox.VerifyPassword("s3cret", initech.ClientSecretHash))
	require.Equal(t, int64(60), initech.AccessTokenTTLSeconds)
	require.True(t, initech.UseEncryption)

	acme, err := st.Clients().GetClient(ctx, "acme")
	require.NoError(t, err)
	require.Empty(t, acme.ClientSecretHash, "acme is a public client")

	mallory, err := st.Principals().GetPrincipal(ctx, "mallory")
	require.NoError(t, err)
	require.False(t, mallory.Enabled)

	// Seeding again updates in place.
	res = seed(t, cfg)
	require.Equal(t, 2, res.Clients)
}

func TestSeedRejectsInvalidClient(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, app.ConfigureSecrets(cfg))

	st, err := app.OpenStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	_, err = app.Seed(context.Background(), st, &app.ClientsFile{
		Clients: []app.ClientEntry{{
			ClientID:        "broken",
			SignatureSecret: "0123456789abcdef0123456789abcdef",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: time.Minute,
		}},
		Principals: []app.PrincipalEntry{{Username: "bob", Password: "pw"}},
	})
	require.Error(t, err)

	clients, err := st.Clients().ListClients(context.Background())
	require.NoError(t, err)
	require.Empty(t, clients)
}

func TestReadClientsFileMissing(t *testing.T) {
	file, found, err := app.ReadClientsFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, file.Clients)
}

func TestApplicationServesSeededClients(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg)

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, application.Shutdown())
	})

	ctx := context.Background()
	sdk := authsdk.NewClient(srv.URL, time.Second)

	tokens, err := sdk.Login(ctx, authsdk.LoginRequest{
		ClientID:     "initech",
		ClientSecret: "s3cret",
		Username:     "alice",
		Password:     "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "Token", tokens.TokenType)
	require.Equal(t, int64(60), tokens.ExpiresIn)

	id, err := sdk.Verify(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", id.Subject)
	require.ElementsMatch(t, []string{"ROLE_READ", "ROLE_WRITE"}, id.Authorities)

	_, err = sdk.Login(ctx, authsdk.LoginRequest{
		ClientID: "acme",
		Username: "mallory",
		Password: "correct horse",
	})
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, "principal_disabled", oe.Code)

	ready, err := sdk.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
}

func TestNewRejectsUnboundClient(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.ClientsFile, []byte(`
clients:
  - client_id: orphan
    signature_secret: 0123456789abcdef0123456789abcdef
    signature_algorithm: HS256
    access_token_ttl: 5m
    refresh_token_ttl: 1h
`), 0o600))
	seed(t, cfg)

	_, err := app.New(context.Background(), cfg)
	require.ErrorContains(t, err, "no claims provider binding")
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg)

	bad := filepath.Join(t.TempDir(), "bindings.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("clients:\n  - client_id: acme\n    claims_provider: ldap\n"), 0o600))
	cfg.ClientsFile = bad

	_, err := app.New(context.Background(), cfg)
	require.ErrorContains(t, err, "unknown claims provider")
}

func TestNewRejectsReservedClaimsKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.ClaimsKey = "exp"

	_, err := app.New(context.Background(), cfg)
	require.ErrorContains(t, err, "collides with a registered claim")
}
