package authsdk

import (
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error" example:"token_expired"`
	ErrorDescription string `json:"error_description" example:"token has expired, refresh it"`
}

// TokenResponse is returned by POST /v1/oauth2/token for both the password
// and the refresh_token grant.
type TokenResponse struct {
	// AccessToken is the signed (or sealed) access token
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged for a new pair once the access token expires
	RefreshToken string `json:"refresh_token"`

	// TokenType is the client's configured label, "Bearer" by default
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in" example:"300"`

	// RefreshExpiresIn is the lifetime in seconds of the refresh token
	RefreshExpiresIn int64 `json:"refresh_expires_in" example:"86400"`
}

// NewTokenResponse renders an issued pair.
func NewTokenResponse(pair tokenx.IssuedTokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        pair.TokenType,
		ExpiresIn:        int64(pair.ExpiresIn.Seconds()),
		RefreshExpiresIn: int64(pair.RefreshExpiresIn.Seconds()),
	}
}

// VerifyResponse is returned by POST /v1/oauth2/verify for a valid access
// token.
type VerifyResponse struct {
	Subject     string         `json:"sub" example:"alice"`
	Authorities []string       `json:"authorities" example:"USER"`
	ClientID    string         `json:"client_id" example:"acme"`
	TokenType   string         `json:"token_type" example:"access"`
	TokenID     string         `json:"jti"`
	IssuedAt    int64          `json:"iat"`
	ExpiresAt   int64          `json:"exp"`
	Claims      map[string]any `json:"claims,omitempty"`
}

// NewVerifyResponse renders a verified identity.
func NewVerifyResponse(id tokenx.VerifiedIdentity) VerifyResponse {
	authorities := id.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return VerifyResponse{
		Subject:     id.Subject,
		Authorities: authorities,
		ClientID:    id.ClientID,
		TokenType:   string(id.TokenType),
		TokenID:     id.TokenID,
		IssuedAt:    id.IssuedAt.Unix(),
		ExpiresAt:   id.ExpiresAt.Unix(),
		Claims:      id.Claims,
	}
}

// Identity converts the response back into the domain type.
func (r VerifyResponse) Identity() tokenx.VerifiedIdentity {
	return tokenx.VerifiedIdentity{
		Subject:     r.Subject,
		Authorities: r.Authorities,
		ClientID:    r.ClientID,
		TokenType:   tokenx.TokenType(r.TokenType),
		TokenID:     r.TokenID,
		IssuedAt:    time.Unix(r.IssuedAt, 0).UTC(),
		ExpiresAt:   time.Unix(r.ExpiresAt, 0).UTC(),
		Claims:      r.Claims,
	}
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded"
	Status string `json:"status" example:"ok"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks holds per-dependency results, readiness only
	Checks map[string]string `json:"checks,omitempty"`
}

// JWKSResponse contains the public key of one client.
type JWKSResponse jwtx.JWKS
