package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// StatusTokenExpired is the non-standard status used to tell a caller that
// its access token must be refreshed rather than discarded.
const StatusTokenExpired = 419

// AccessVerifier checks a bearer access token.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (tokenx.VerifiedIdentity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[7:])
	return raw, raw != ""
}

func AuthnMiddleware(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, http.StatusUnauthorized, "invalid_request", "missing bearer token")
				return
			}

			id, err := v.VerifyAccess(ctx, raw)
			if err != nil {
				code := tokenx.Code(err)
				log.Warn("bearer token rejected", "code", code, "err", err)

				switch {
				case errors.Is(err, tokenx.ErrTokenExpired):
					writeBearerError(w, StatusTokenExpired, "invalid_token", code)
				case errors.Is(err, tokenx.ErrUpstreamTimeout):
					writeBearerError(w, http.StatusGatewayTimeout, "temporarily_unavailable", code)
				default:
					writeBearerError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, id)))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteJSON(w, status, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
