package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// LoginService authenticates a principal for a client. *service.Authenticator
// satisfies it.
type LoginService interface {
	Login(ctx context.Context, req service.LoginRequest) (tokenx.IssuedTokenPair, error)
}

// RefreshService exchanges a refresh token. *service.RefreshCoordinator
// satisfies it.
type RefreshService interface {
	Refresh(ctx context.Context, rawRefreshToken string) (tokenx.IssuedTokenPair, error)
}

// TokenHandler serves POST /v1/oauth2/token.
type TokenHandler struct {
	Authenticator LoginService
	Refresher     RefreshService
}

// ServeHTTP godoc
//
//	@Summary		Token Endpoint
//	@Description	Issues an access and refresh token pair. The password grant authenticates a principal for a client;
//	@Description	the refresh_token grant exchanges a valid refresh token for a new pair.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(password, refresh_token)
//	@Param			client_id		formData	string					false	"Client identifier (password grant)"
//	@Param			client_secret	formData	string					false	"Client secret (confidential clients)"
//	@Param			username		formData	string					false	"Principal username (password grant)"
//	@Param			password		formData	string					false	"Principal password (password grant)"
//	@Param			otp_code		formData	string					false	"TOTP code for principals enrolled in MFA"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Success		200				{object}	authsdk.TokenResponse	"token pair"
//	@Failure		400				{object}	authsdk.ErrorResponse	"invalid_request, unsupported_grant_type, not_a_refresh_token, refresh_token_reused"
//	@Failure		401				{object}	authsdk.ErrorResponse	"unknown_client, invalid_credentials, mfa_required, invalid_signature, malformed_token, decryption_failed"
//	@Failure		403				{object}	authsdk.ErrorResponse	"principal_disabled"
//	@Failure		419				{object}	authsdk.ErrorResponse	"token_expired"
//	@Failure		429				{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		500				{object}	authsdk.ErrorResponse	"signing_failed, claims_production_failed, server_error"
//	@Failure		504				{object}	authsdk.ErrorResponse	"upstream_timeout"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Router			/v1/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "password":
		h.handlePasswordGrant(w, r)
	case "refresh_token":
		h.handleRefreshGrant(w, r)
	case "":
		authsdk.ErrInvalidRequest.WriteError(w)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handlePasswordGrant(w http.ResponseWriter, r *http.Request) {
	req := service.LoginRequest{
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecret: r.PostForm.Get("client_secret"),
		Username:     strings.TrimSpace(r.PostForm.Get("username")),
		Password:     r.PostForm.Get("password"),
		OTPCode:      strings.TrimSpace(r.PostForm.Get("otp_code")),
	}
	if req.ClientID == "" || req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Authenticator.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "password grant failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.NewTokenResponse(pair))
}

func (h *TokenHandler) handleRefreshGrant(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.PostForm.Get("refresh_token"))
	if raw == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Refresher.Refresh(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, "refresh grant failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.NewTokenResponse(pair))
}

// parseForm accepts only form-encoded bodies and writes the error itself.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

// writeServiceError renders err in its wire form. Server side failures are
// logged at error level, rejections at info.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := slogx.FromContext(r.Context())
	oe := authsdk.FromError(err)
	if oe.StatusCode >= http.StatusInternalServerError {
		log.Error(msg, "code", oe.Code, "error", err)
	} else {
		log.Info(msg, "code", oe.Code, "error", err)
	}
	oe.WriteError(w)
}
