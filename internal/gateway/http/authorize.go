package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
)

// Identity headers set on every authorized request forwarded upstream.
const (
	HeaderAuthPrefix      = "X-Auth-"
	HeaderAuthSubject     = "X-Auth-Subject"
	HeaderAuthAuthorities = "X-Auth-Authorities"
	HeaderAuthClientID    = "X-Auth-Client-ID"
)

// IdentityKey is the gin context key holding the tokenx.VerifiedIdentity.
const IdentityKey = "identity"

// Authorizer answers whether a bearer token is acceptable. *edge.Cache
// satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (tokenx.VerifiedIdentity, error)
}

// RetryPolicy bounds how often an upstream timeout is retried.
type RetryPolicy struct {
	Retries         int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// authorize calls a, retrying only tokenx.ErrUpstreamTimeout. Every other
// outcome is final.
func (p RetryPolicy) authorize(ctx context.Context, a Authorizer, raw string) (tokenx.VerifiedIdentity, error) {
	attempt := 0
	op := func() (tokenx.VerifiedIdentity, error) {
		attempt++
		id, err := a.Authorize(ctx, raw)
		if err == nil {
			return id, nil
		}
		if !tokenx.IsRetryable(err) {
			return id, backoff.Permanent(err)
		}
		slogx.FromContext(ctx).Debug("token verification timed out", "attempt", attempt, "error", err)
		return id, err
	}
	return backoff.RetryWithData(op, p.newBackOff(ctx))
}

// authorizeRequest returns a check that either authorizes c or aborts it
// with the rejection. Accepted requests carry the identity downstream in
// X-Auth-* headers.
func authorizeRequest(a Authorizer, policy RetryPolicy) func(*gin.Context) bool {
	return func(c *gin.Context) bool {
		ctx := c.Request.Context()
		log := slogx.FromContext(ctx)

		raw, ok := httpx.BearerToken(c.Request)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidRequest,
				ErrorDescription: "missing bearer token",
			})
			return false
		}

		id, err := policy.authorize(ctx, a, raw)
		if err != nil {
			status, body := rejection(err)
			log.Warn("request not authorized", "code", body.Error, "status", status, "error", err)
			abortWithError(c, status, body)
			return false
		}

		setIdentityHeaders(c.Request.Header, id)
		c.Set(IdentityKey, id)
		c.Request = c.Request.WithContext(httpx.ContextWithIdentity(ctx, id))
		return true
	}
}

// rejection maps a verification error to its response. Failures outside
// the taxonomy mean the token service could not be reached.
func rejection(err error) (int, authsdk.ErrorResponse) {
	var oe *authsdk.OAuth2Error
	if tokenx.Code(err) == "" && !errors.As(err, &oe) {
		return http.StatusBadGateway, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "token service unavailable",
		}
	}
	oe = authsdk.FromError(err)
	return authsdk.StatusForError(err), authsdk.ErrorResponse{
		Error:            oe.Code,
		ErrorDescription: oe.Description,
	}
}

func abortWithError(c *gin.Context, status int, body authsdk.ErrorResponse) {
	if status == http.StatusUnauthorized || status == httpx.StatusTokenExpired {
		c.Header("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+body.Error+`"`)
	}
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, body)
}

// stripIdentityHeaders removes X-Auth-* headers so a caller cannot assert
// an identity of its own.
func stripIdentityHeaders(h http.Header) {
	for name := range h {
		if strings.HasPrefix(http.CanonicalHeaderKey(name), HeaderAuthPrefix) {
			h.Del(name)
		}
	}
}

func setIdentityHeaders(h http.Header, id tokenx.VerifiedIdentity) {
	stripIdentityHeaders(h)
	h.Set(HeaderAuthSubject, id.Subject)
	h.Set(HeaderAuthAuthorities, strings.Join(id.Authorities, ","))
	h.Set(HeaderAuthClientID, id.ClientID)
}
