package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/registry"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// ClientKeys is the part of the Client Credential Registry the HTTP layer
// needs. *registry.CredentialRegistry satisfies it.
type ClientKeys interface {
	Resolve(ctx context.Context, clientID string) (*registry.ResolvedClient, error)
	Invalidate(clientID string)
}

// JWKSHandler godoc
//
//	@Summary		Client JWKS
//	@Description	Returns the public verification key of an asymmetric client. Clients signing with a shared
//	@Description	secret have no public key and return 404.
//	@Tags			Clients
//	@Produce		json
//	@Param			client_id	path		string					true	"Client identifier"
//	@Success		200			{object}	authsdk.JWKSResponse	"JSON Web Key Set"
//	@Failure		404			{object}	authsdk.ErrorResponse	"not_found"
//	@Failure		500			{object}	authsdk.ErrorResponse	"signing_failed"
//	@Failure		504			{object}	authsdk.ErrorResponse	"upstream_timeout"
//	@Router			/v1/clients/{client_id}/jwks.json [get].
func JWKSHandler(clients ClientKeys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.PathValue("client_id")

		rc, err := clients.Resolve(r.Context(), clientID)
		if errors.Is(err, tokenx.ErrUnknownClient) {
			authsdk.ErrNotFound.WriteError(w)
			return
		}
		if err != nil {
			writeServiceError(w, r, "jwks lookup failed", err)
			return
		}

		jwk, ok := rc.Keys.PublicJWK(clientID)
		if !ok {
			authsdk.ErrNotFound.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(jwtx.JWKS{Keys: []jwtx.JWK{jwk}}))
	}
}

// EvictClientHandler godoc
//
//	@Summary		Evict Client From Cache
//	@Description	Drops a client from the credential cache so its next use reloads the stored configuration.
//	@Tags			Clients
//	@Security		BearerAuth
//	@Param			client_id	path	string	true	"Client identifier"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_request, invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"insufficient_scope"
//	@Failure		419	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		429	{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/clients/{client_id}/cache [delete].
func EvictClientHandler(clients ClientKeys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.PathValue("client_id")
		clients.Invalidate(clientID)

		caller, _ := httpx.IdentityFromContext(r.Context())
		slogx.FromContext(r.Context()).Info("client evicted from credential cache",
			"client_id", clientID,
			"by", caller.Subject,
		)
		httpx.NoCache(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
