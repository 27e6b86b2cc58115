package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/edge"
	gatewayhttp "github.com/aussiebroadwan/tollgate/internal/gateway/http"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/gin-gonic/gin"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application is the gateway process: an edge cache in front of the token
// service and a reverse proxy in front of the backends.
type Application struct {
	cfg       Config
	logger    *slog.Logger
	logCloser io.Closer

	tokenService *authsdk.Client
	cache        *edge.Cache
	router       *gatewayhttp.Router
	server       *http.Server
}

func New(cfg Config) (*Application, error) {
	logger, closer := slogx.New(slogx.Config{
		Service:    "gateway",
		Version:    BuildVersion,
		Env:        cfg.Env,
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	app := &Application{cfg: cfg, logger: logger, logCloser: closer}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.initEdge(); err != nil {
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		return nil, err
	}
	return app, nil
}

func (app *Application) initEdge() error {
	app.tokenService = authsdk.NewClient(app.cfg.TokenServiceURL, app.cfg.VerifyTimeout)

	cache, err := edge.New(app.tokenService, edge.Config{
		Capacity:      app.cfg.CacheCapacity,
		TTL:           app.cfg.CacheTTL,
		VerifyTimeout: app.cfg.VerifyTimeout,
		SweepInterval: app.cfg.CacheSweepInterval,
		Logger:        app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize edge cache: %w", err)
	}
	app.cache = cache
	return nil
}

func (app *Application) initHTTP() error {
	routes, err := gatewayhttp.ParseRoutes(app.cfg.Routes, false)
	if err != nil {
		return fmt.Errorf("GATEWAY_ROUTES: %w", err)
	}
	public, err := gatewayhttp.ParseRoutes(app.cfg.PublicRoutes, true)
	if err != nil {
		return fmt.Errorf("GATEWAY_PUBLIC_ROUTES: %w", err)
	}

	router, err := gatewayhttp.NewRouter(gatewayhttp.Options{
		Authorizer: app.cache,
		Retry: gatewayhttp.RetryPolicy{
			Retries:         app.cfg.VerifyRetries,
			InitialInterval: app.cfg.VerifyRetryInterval,
			MaxInterval:     app.cfg.VerifyRetryMax,
		},
		Routes:    append(routes, public...),
		Upstream:  app.upstreamTransport(),
		Readiness: app.tokenService,
		Version:   BuildVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to build routes: %w", err)
	}
	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           slogx.HTTPMiddleware(app.logger)(router),
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

func (app *Application) upstreamTransport() http.RoundTripper {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: app.cfg.UpstreamTimeout,
	}
}

// Run starts the gateway and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.cache.Start()

	app.logger.Info("gateway starting", "addr", app.cfg.Addr, "token_service", app.cfg.TokenServiceURL, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.cache.Stop()
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

// Shutdown drains in-flight requests and stops the cache sweeper.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.cache.Stop()
	stats := app.cache.Stats()
	app.logger.Info("gateway stopped", "cache_hits", stats.Hits, "cache_misses", stats.Misses)
	return app.logCloser.Close()
}
