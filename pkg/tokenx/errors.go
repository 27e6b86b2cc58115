// Package tokenx holds the verification vocabulary shared by the token
// service, its SDK and the gateway: the failure taxonomy and the identity a
// verified token proves.
package tokenx

import "errors"

// Failure taxonomy shared by the token service, the SDK and the gateway. The
// error text doubles as the wire code so a failure survives a network hop
// unchanged.
var (
	ErrUnknownClient          = errors.New("unknown_client")
	ErrClaimsProductionFailed = errors.New("claims_production_failed")
	ErrSigningFailed          = errors.New("signing_failed")
	ErrDecryptionFailed       = errors.New("decryption_failed")
	ErrInvalidSignature       = errors.New("invalid_signature")
	ErrMalformedToken         = errors.New("malformed_token")
	ErrTokenExpired           = errors.New("token_expired")
	ErrNotARefreshToken       = errors.New("not_a_refresh_token")
	ErrNotAnAccessToken       = errors.New("not_an_access_token")
	ErrUpstreamTimeout        = errors.New("upstream_timeout")
	ErrPrincipalDisabled      = errors.New("principal_disabled")
	ErrRefreshTokenReused     = errors.New("refresh_token_reused")

	// Login entry point failures.
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrMFARequired        = errors.New("mfa_required")
)

var taxonomy = []error{
	ErrUnknownClient,
	ErrClaimsProductionFailed,
	ErrSigningFailed,
	ErrDecryptionFailed,
	ErrInvalidSignature,
	ErrMalformedToken,
	ErrTokenExpired,
	ErrNotARefreshToken,
	ErrNotAnAccessToken,
	ErrUpstreamTimeout,
	ErrPrincipalDisabled,
	ErrRefreshTokenReused,
	ErrInvalidCredentials,
	ErrMFARequired,
}

var byCode = func() map[string]error {
	m := make(map[string]error, len(taxonomy))
	for _, err := range taxonomy {
		m[err.Error()] = err
	}
	return m
}()

// ErrorFromCode returns the sentinel whose wire code is code, or nil.
func ErrorFromCode(code string) error {
	return byCode[code]
}

// Code returns the wire code of the first taxonomy sentinel in err's chain.
// Errors outside the taxonomy return "".
func Code(err error) string {
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ""
}

// IsDefinitive reports whether err is a verification outcome that will not
// change on retry. Timeouts and errors outside the taxonomy are not.
func IsDefinitive(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrUpstreamTimeout) {
		return false
	}
	return Code(err) != ""
}

// IsRetryable reports whether a caller may retry err with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout)
}
