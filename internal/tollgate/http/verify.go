package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// VerifyHandler serves POST /v1/oauth2/verify for gateways and backends
// that do not hold client key material.
type VerifyHandler struct {
	Verifier httpx.AccessVerifier
}

// ServeHTTP godoc
//
//	@Summary		Verify Access Token
//	@Description	Verifies an access token issued to any registered client and returns the identity it proves.
//	@Description	Refresh tokens are rejected with not_an_access_token.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token	formData	string					true	"Access token"
//	@Success		200		{object}	authsdk.VerifyResponse	"verified identity"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"unknown_client, invalid_signature, malformed_token, decryption_failed, not_an_access_token"
//	@Failure		419		{object}	authsdk.ErrorResponse	"token_expired"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		500		{object}	authsdk.ErrorResponse	"signing_failed, server_error"
//	@Failure		504		{object}	authsdk.ErrorResponse	"upstream_timeout"
//	@Router			/v1/oauth2/verify [post].
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	raw := strings.TrimSpace(r.PostForm.Get("token"))
	if raw == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	id, err := h.Verifier.VerifyAccess(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, "token verification failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.NewVerifyResponse(id))
}
