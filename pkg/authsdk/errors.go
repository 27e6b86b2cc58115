package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// Transport level error codes that are not part of the failure taxonomy.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeServerError          = "server_error"
	ErrorCodeNotFound             = "not_found"
)

var statusByCode = map[string]int{
	tokenx.ErrTokenExpired.Error(): httpx.StatusTokenExpired,

	tokenx.ErrUnknownClient.Error():      http.StatusUnauthorized,
	tokenx.ErrInvalidSignature.Error():   http.StatusUnauthorized,
	tokenx.ErrMalformedToken.Error():     http.StatusUnauthorized,
	tokenx.ErrDecryptionFailed.Error():   http.StatusUnauthorized,
	tokenx.ErrNotAnAccessToken.Error():   http.StatusUnauthorized,
	tokenx.ErrInvalidCredentials.Error(): http.StatusUnauthorized,
	tokenx.ErrMFARequired.Error():        http.StatusUnauthorized,

	tokenx.ErrNotARefreshToken.Error():   http.StatusBadRequest,
	tokenx.ErrRefreshTokenReused.Error(): http.StatusBadRequest,
	ErrorCodeInvalidRequest:              http.StatusBadRequest,
	ErrorCodeUnsupportedGrantType:        http.StatusBadRequest,

	tokenx.ErrPrincipalDisabled.Error(): http.StatusForbidden,
	tokenx.ErrUpstreamTimeout.Error():   http.StatusGatewayTimeout,
	ErrorCodeNotFound:                   http.StatusNotFound,

	tokenx.ErrClaimsProductionFailed.Error(): http.StatusInternalServerError,
	tokenx.ErrSigningFailed.Error():          http.StatusInternalServerError,
}

// StatusForCode returns the HTTP status for a wire error code. Unknown codes
// map to 500.
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForError returns the HTTP status that carries err.
func StatusForError(err error) int {
	var oe *OAuth2Error
	if errors.As(err, &oe) {
		return StatusForCode(oe.Code)
	}
	return StatusForCode(tokenx.Code(err))
}

// OAuth2Error is the error body shared by the server and the client.
type OAuth2Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is a taxonomy code or one of the ErrorCode constants
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap exposes the taxonomy sentinel for Code, if any.
func (e *OAuth2Error) Unwrap() error {
	return tokenx.ErrorFromCode(e.Code)
}

// WriteError writes e as a JSON error response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

// NewOAuth2Error builds an error whose status follows its code.
func NewOAuth2Error(code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  StatusForCode(code),
		Code:        code,
		Description: description,
	}
}

// FromError converts a service error into its wire form. Errors outside the
// taxonomy become a generic server_error so internals are not leaked.
func FromError(err error) *OAuth2Error {
	var oe *OAuth2Error
	if errors.As(err, &oe) {
		return oe
	}

	code := tokenx.Code(err)
	if code == "" {
		return ErrServerError
	}
	return NewOAuth2Error(code, describe(code))
}

var (
	ErrInvalidRequest = NewOAuth2Error(ErrorCodeInvalidRequest,
		"the request is malformed or missing required parameters")

	ErrUnsupportedGrantType = NewOAuth2Error(ErrorCodeUnsupportedGrantType,
		"grant type not supported")

	ErrInvalidContentType = NewOAuth2Error(ErrorCodeInvalidRequest,
		"content-type must be application/x-www-form-urlencoded")

	ErrInvalidFormBody = NewOAuth2Error(ErrorCodeInvalidRequest,
		"invalid form body")

	ErrNotFound = NewOAuth2Error(ErrorCodeNotFound,
		"resource not found")

	ErrServerError = NewOAuth2Error(ErrorCodeServerError,
		"internal server error")
)

var descriptions = map[string]string{
	tokenx.ErrUnknownClient.Error():          "client is not registered",
	tokenx.ErrClaimsProductionFailed.Error(): "claims could not be produced for the principal",
	tokenx.ErrSigningFailed.Error():          "client key material is unusable",
	tokenx.ErrDecryptionFailed.Error():       "token could not be decrypted",
	tokenx.ErrInvalidSignature.Error():       "token signature is invalid",
	tokenx.ErrMalformedToken.Error():         "token structure is invalid",
	tokenx.ErrTokenExpired.Error():           "token has expired, refresh it",
	tokenx.ErrNotARefreshToken.Error():       "token is not a refresh token",
	tokenx.ErrNotAnAccessToken.Error():       "token is not an access token",
	tokenx.ErrUpstreamTimeout.Error():        "an upstream dependency timed out",
	tokenx.ErrPrincipalDisabled.Error():      "account is disabled",
	tokenx.ErrRefreshTokenReused.Error():     "refresh token was already used",
	tokenx.ErrInvalidCredentials.Error():     "invalid credentials",
	tokenx.ErrMFARequired.Error():            "a one-time code is required",
}

func describe(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return code
}

// parseErrorResponse turns a non-2xx response into an *OAuth2Error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	code := ErrorCodeServerError
	if resp.StatusCode == http.StatusGatewayTimeout {
		code = tokenx.ErrUpstreamTimeout.Error()
	}
	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
