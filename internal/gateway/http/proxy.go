package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/gin-gonic/gin"
)

var ErrInvalidRoute = errors.New("invalid route")

// Route sends every request under Prefix to Upstream.
type Route struct {
	Prefix   string
	Upstream *url.URL

	// Public routes skip authorization.
	Public bool
}

// ParseRoutes reads "prefix=url" pairs separated by commas, e.g.
// "/api/media=http://media:8081,/api/albums=http://albums:8083".
func ParseRoutes(list string, public bool) ([]Route, error) {
	var routes []Route
	for _, pair := range strings.Split(list, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		prefix, target, ok := strings.Cut(pair, "=")
		prefix, target = strings.TrimSpace(prefix), strings.TrimSpace(target)
		if !ok || !strings.HasPrefix(prefix, "/") || target == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRoute, pair)
		}

		u, err := url.Parse(target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %q: upstream must be an absolute url", ErrInvalidRoute, pair)
		}
		routes = append(routes, Route{Prefix: prefix, Upstream: u, Public: public})
	}
	return routes, nil
}

type proxyRoute struct {
	Route
	proxy *httputil.ReverseProxy
}

// routeTable matches the longest prefix on a path segment boundary.
type routeTable struct {
	routes []proxyRoute
}

func newRouteTable(routes []Route, transport http.RoundTripper) (*routeTable, error) {
	seen := make(map[string]bool, len(routes))
	table := &routeTable{}
	for _, r := range routes {
		if seen[r.Prefix] {
			return nil, fmt.Errorf("%w: duplicate prefix %q", ErrInvalidRoute, r.Prefix)
		}
		seen[r.Prefix] = true

		proxy := httputil.NewSingleHostReverseProxy(r.Upstream)
		if transport != nil {
			proxy.Transport = transport
		}
		proxy.ErrorHandler = proxyError(r.Upstream.Host)
		table.routes = append(table.routes, proxyRoute{Route: r, proxy: proxy})
	}

	sort.Slice(table.routes, func(i, j int) bool {
		return len(table.routes[i].Prefix) > len(table.routes[j].Prefix)
	})
	return table, nil
}

func (t *routeTable) match(path string) (proxyRoute, bool) {
	for _, r := range t.routes {
		if matchesPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return proxyRoute{}, false
}

func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}

func proxyError(upstream string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		slogx.FromContext(r.Context()).Error("upstream request failed", "upstream", upstream, "error", err)
		httpx.WriteJSON(w, http.StatusBadGateway, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "upstream unavailable",
		})
	}
}

// forward dispatches to the matched upstream, authorizing first unless the
// route is public.
func (t *routeTable) forward(authorize func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, ok := t.match(c.Request.URL.Path)
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeNotFound,
				ErrorDescription: "no route for path",
			})
			return
		}

		if !route.Public && !authorize(c) {
			return
		}
		route.proxy.ServeHTTP(c.Writer, c.Request)
	}
}
