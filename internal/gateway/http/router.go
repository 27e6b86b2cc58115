package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/gin-gonic/gin"
)

// ReadinessProbe reports whether the token service can answer. The
// *authsdk.Client satisfies it.
type ReadinessProbe interface {
	GetReadiness(ctx context.Context) (*authsdk.HealthResponse, error)
}

type Options struct {
	Authorizer Authorizer
	Retry      RetryPolicy
	Routes     []Route

	// Upstream is the round tripper used by every proxy, nil for
	// http.DefaultTransport.
	Upstream http.RoundTripper

	// Readiness is optional; without it /readyz only reports the gateway.
	Readiness ReadinessProbe

	Version string
}

// Router is the gateway's gin engine with its route table.
type Router struct {
	Engine *gin.Engine

	readiness    ReadinessProbe
	buildVersion string
	startTime    time.Time
}

func NewRouter(opts Options) (*Router, error) {
	if opts.Authorizer == nil {
		return nil, errors.New("gateway: authorizer cannot be nil")
	}
	table, err := newRouteTable(opts.Routes, opts.Upstream)
	if err != nil {
		return nil, err
	}

	r := &Router{
		Engine:       gin.New(),
		readiness:    opts.Readiness,
		buildVersion: opts.Version,
		startTime:    time.Now(),
	}

	r.Engine.Use(Recovery(), CorrelationID())
	r.Engine.GET("/livez", r.livez)
	r.Engine.GET("/readyz", r.readyz)
	r.Engine.NoRoute(table.forward(authorizeRequest(opts.Authorizer, opts.Retry)))

	return r, nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Engine.ServeHTTP(w, req)
}

func (r *Router) livez(c *gin.Context) {
	c.JSON(http.StatusOK, authsdk.HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(r.startTime).String(),
		Version: r.buildVersion,
	})
}

func (r *Router) readyz(c *gin.Context) {
	resp := authsdk.HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(r.startTime).String(),
		Version: r.buildVersion,
		Checks:  map[string]string{},
	}
	status := http.StatusOK

	if r.readiness != nil {
		resp.Checks["token_service"] = "ok"
		if _, err := r.readiness.GetReadiness(c.Request.Context()); err != nil {
			resp.Checks["token_service"] = "error: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}
