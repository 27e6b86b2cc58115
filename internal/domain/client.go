package domain

import (
	"errors"
	"fmt"
	"time"
)

// ClientConfig is a registered consumer of the token service and the
// cryptographic parameters its tokens are minted with.
type ClientConfig struct {
	ClientID string

	// ClientSecretHash is the argon2id hash of the client's own secret. It is
	// only used to authenticate the client at login.
	ClientSecretHash string

	// SignatureSecret is HMAC key bytes or a PEM private key. A value prefixed
	// with "{cipher}" is encrypted at rest and must be resolved before use.
	SignatureSecret    string
	SignatureAlgorithm string

	// EncryptionSecret is optional sealing key material, same encoding rules
	// as SignatureSecret. Empty means derive from the signature secret.
	EncryptionSecret string
	UseEncryption    bool

	ClaimsProviderID string
	TokenType        string

	AccessTokenTTLSeconds  int64
	RefreshTokenTTLSeconds int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrInvalidClientConfig = errors.New("invalid client config")

// Validate checks the lifecycle invariants of a client record.
func (c ClientConfig) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("%w: empty client id", ErrInvalidClientConfig)
	case c.SignatureSecret == "":
		return fmt.Errorf("%w: %s: empty signature secret", ErrInvalidClientConfig, c.ClientID)
	case c.AccessTokenTTLSeconds <= 0 || c.RefreshTokenTTLSeconds <= 0:
		return fmt.Errorf("%w: %s: ttls must be positive", ErrInvalidClientConfig, c.ClientID)
	case c.RefreshTokenTTLSeconds <= c.AccessTokenTTLSeconds:
		return fmt.Errorf("%w: %s: refresh ttl must exceed access ttl", ErrInvalidClientConfig, c.ClientID)
	}
	return nil
}

func (c ClientConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSeconds) * time.Second
}

func (c ClientConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLSeconds) * time.Second
}

// TokenTypeLabel is the token_type reported to clients, "Bearer" unless the
// client overrides it.
func (c ClientConfig) TokenTypeLabel() string {
	if c.TokenType == "" {
		return "Bearer"
	}
	return c.TokenType
}
