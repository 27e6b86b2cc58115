package httpx

import (
	"context"

	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// ContextWithIdentity stores a verified identity for downstream handlers.
func ContextWithIdentity(ctx context.Context, id tokenx.VerifiedIdentity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the identity placed by AuthnMiddleware.
func IdentityFromContext(ctx context.Context) (tokenx.VerifiedIdentity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(tokenx.VerifiedIdentity)
	return id, ok
}

func authoritiesFromCtx(ctx context.Context) []string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.Authorities
	}
	return nil
}
