package tokenx

import "time"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AuthoritiesClaim is the key inside the custom claims map that carries the
// authority set every claims provider emits.
const AuthoritiesClaim = "authorities"

// IssuedTokenPair is an access/refresh pair minted for one client and subject.
type IssuedTokenPair struct {
	AccessToken  string
	RefreshToken string

	ClientID  string
	Subject   string
	TokenType string // transport label, e.g. "Bearer"

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	ExpiresIn        time.Duration
	RefreshExpiresIn time.Duration
}

// VerifiedIdentity is what a successfully verified token proves.
type VerifiedIdentity struct {
	Subject     string
	Authorities []string
	ClientID    string

	TokenType TokenType
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Claims is the full custom claims map the provider produced.
	Claims map[string]any
}
