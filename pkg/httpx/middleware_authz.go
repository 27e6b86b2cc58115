package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyAuthority the caller must hold at least one of the provided
// authorities.
func RequireAnyAuthority(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := authoritiesFromCtx(r.Context())
			for _, a := range required {
				if slices.Contains(have, a) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeInsufficientAuthority(w, required...)
		})
	}
}

func writeInsufficientAuthority(w http.ResponseWriter, required ...string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "requires one of: " + strings.Join(required, ", "),
	})
}
