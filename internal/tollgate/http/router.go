package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"

	_ "github.com/aussiebroadwan/tollgate/api/tollgate" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultAdminAuthority guards the administrative endpoints.
const DefaultAdminAuthority = "TOLLGATE_ADMIN"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion   string
	startTime      time.Time
	logger         *slog.Logger
	adminAuthority string

	db            Pinger
	Authenticator LoginService
	Refresher     RefreshService
	Verifier      httpx.AccessVerifier
	Clients       ClientKeys

	// Ledger is checked by /readyz when refresh rotation lives outside the
	// database.
	Ledger Pinger
}

func NewRouter(buildVersion, adminAuthority string, db Pinger, logger *slog.Logger) *Router {
	if adminAuthority == "" {
		adminAuthority = DefaultAdminAuthority
	}

	r := &Router{
		Mux:            http.NewServeMux(),
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		logger:         logger,
		adminAuthority: adminAuthority,
		db:             db,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerClients()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tollgate Token Service API
//	@version		0.1.0
//	@description	Multi-tenant token issuance and verification. Every registered client signs with its own
//	@description	algorithm and secret; tokens may additionally be sealed per client.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/tollgate
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	// Credential exchange: strict limit per IP and client_id. Refresh
	// requests carry no client_id and share the per-IP bucket.
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(&TokenHandler{Authenticator: r.Authenticator, Refresher: r.Refresher},
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "client_id"),
		),
	)

	// Gateways verify on every cache miss, so this one is lenient.
	r.Mux.Handle("POST /v1/oauth2/verify",
		httpx.Chain(&VerifyHandler{Verifier: r.Verifier},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerClients() {
	r.Mux.Handle("GET /v1/clients/{client_id}/jwks.json",
		httpx.Chain(JWKSHandler(r.Clients),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("DELETE /v1/clients/{client_id}/cache",
		httpx.Chain(EvictClientHandler(r.Clients),
			httpx.AuthnMiddleware(r.Verifier),
			httpx.RequireAnyAuthority(r.adminAuthority),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.readinessChecks()),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) readinessChecks() map[string]Pinger {
	deps := map[string]Pinger{"database": r.db}
	if r.Ledger != nil {
		deps["refresh_ledger"] = r.Ledger
	}
	return deps
}
