package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/registry"
	"github.com/aussiebroadwan/tollgate/internal/service"
	redisledger "github.com/aussiebroadwan/tollgate/internal/store/drivers/redis"
	"github.com/aussiebroadwan/tollgate/internal/store/drivers/sqlite"
	tollgatehttp "github.com/aussiebroadwan/tollgate/internal/tollgate/http"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application is the token service process.
type Application struct {
	cfg       Config
	logger    *slog.Logger
	logCloser io.Closer

	db          *sqlite.Store
	redis       *goredis.Client // nil unless the ledger lives in Redis
	redisLedger *redisledger.Ledger

	credentials *registry.CredentialRegistry
	claims      *registry.ClaimsRegistry

	issuer              *service.Issuer
	verifier            *service.Verifier
	refresher           *service.RefreshCoordinator
	authenticator       *service.Authenticator
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *tollgatehttp.Router
}

// New builds the application. Stored clients are checked against the
// claims bindings before anything is served.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer := slogx.New(slogx.Config{
		Service:    "tollgate",
		Version:    BuildVersion,
		Env:        cfg.Env,
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	app := &Application{cfg: cfg, logger: logger, logCloser: closer}

	if err := ConfigureSecrets(cfg); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRegistries(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(ctx); err != nil {
		app.credentials.Close()
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// ConfigureSecrets points cryptox at the pepper and master key. Ephemeral
// master keys are only allowed in dev.
func ConfigureSecrets(cfg Config) error {
	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	if cfg.MasterKeyFile != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyFile)
	}
	cryptox.AllowEphemeralMasterKey(cfg.Env == "dev")
	return nil
}

// OpenStore opens the sqlite store and applies migrations.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg)
	if err != nil {
		return err
	}
	app.db = db
	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initRegistries binds every stored client to its claims provider. The
// clients file overrides the stored binding when it names the client.
func (app *Application) initRegistries(ctx context.Context) error {
	clients, err := app.db.Clients().ListClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	bindings := make(map[string]string, len(clients))
	for _, c := range clients {
		if c.ClaimsProviderID != "" {
			bindings[c.ClientID] = c.ClaimsProviderID
		}
	}

	file, found, err := ReadClientsFile(app.cfg.ClientsFile)
	if err != nil {
		return err
	}
	if found {
		for id, provider := range file.Bindings() {
			if provider != "" {
				bindings[id] = provider
			}
		}
	}

	app.claims, err = registry.NewClaimsRegistry(bindings)
	if err != nil {
		return fmt.Errorf("failed to build claims registry: %w", err)
	}
	if err := registry.ValidateClients(clients, app.claims); err != nil {
		return fmt.Errorf("client configuration rejected: %w", err)
	}

	app.credentials, err = registry.NewCredentialRegistry(app.db.Clients(), registry.CipherSecrets{}, registry.Config{
		Capacity:      app.cfg.ClientCacheCapacity,
		TTL:           app.cfg.ClientCacheTTL,
		LookupTimeout: app.cfg.ClientLookupTimeout,
	})
	if err != nil {
		return err
	}

	app.logger.Info("clients validated", "clients", len(clients), "bindings", len(bindings))
	return nil
}

func (app *Application) initServices(ctx context.Context) error {
	app.issuer = &service.Issuer{
		Clients:   app.credentials,
		Claims:    app.claims,
		Issuer:    app.cfg.Issuer,
		ClaimsKey: app.cfg.ClaimsKey,
	}
	app.verifier = &service.Verifier{
		Clients:   app.credentials,
		Issuer:    app.cfg.Issuer,
		ClaimsKey: app.cfg.ClaimsKey,
	}

	ledger, err := app.refreshLedger(ctx)
	if err != nil {
		return err
	}
	app.refresher = &service.RefreshCoordinator{
		Verifier:      app.verifier,
		Issuer:        app.issuer,
		Principals:    app.db.Principals(),
		Ledger:        ledger,
		LookupTimeout: app.cfg.ClientLookupTimeout,
	}
	app.authenticator = &service.Authenticator{
		Clients:       app.credentials,
		Principals:    app.db.Principals(),
		Issuer:        app.issuer,
		LookupTimeout: app.cfg.ClientLookupTimeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db.RefreshTokens(),
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) refreshLedger(ctx context.Context) (service.RefreshLedger, error) {
	if app.cfg.RedisURL == "" {
		return app.db.RefreshTokens(), nil
	}

	opts, err := goredis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("TOLLGATE_REDIS_URL: %w", err)
	}
	app.redis = goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ledger, err := redisledger.NewLedger(pingCtx, app.redis)
	if err != nil {
		_ = app.redis.Close()
		return nil, err
	}
	app.redisLedger = ledger
	app.logger.Info("refresh ledger in redis", "addr", opts.Addr)
	return ledger, nil
}

func (app *Application) initHTTP() {
	router := tollgatehttp.NewRouter(BuildVersion, app.cfg.AdminAuthority, app.db, app.logger)
	router.Authenticator = app.authenticator
	router.Refresher = app.refresher
	router.Verifier = app.verifier
	router.Clients = app.credentials
	if app.redisLedger != nil {
		router.Ledger = app.redisLedger
	}
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("tollgate starting", "addr", app.cfg.Addr, "issuer", app.cfg.Issuer, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		_ = app.Shutdown()
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tollgate...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.credentials.Close()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("tollgate stopped")
	return app.logCloser.Close()
}
