package jwtx

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultClaimsKey is the payload key the custom claims map is stored under
// unless a deployment configures another.
const DefaultClaimsKey = "roles"

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// reservedKeys can never be used as the custom claims key.
var reservedKeys = []string{"iss", "sub", "aud", "exp", "nbf", "iat", "jti", "cid", "typ"}

// Claims is the payload of every token we mint. The custom map is written
// under CustomKey so deployments can pick the name their resource services
// already expect.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID routes verification to the right client configuration.
	ClientID string `json:"cid,omitempty"`

	// Type is "access" or "refresh".
	Type string `json:"typ,omitempty"`

	Custom    map[string]any `json:"-"`
	CustomKey string         `json:"-"`
}

// NewClaims builds minimally-correct claims issued at now.
func NewClaims(
	issuer, subject, clientID, typ string,
	custom map[string]any,
	customKey string,
	now time.Time,
	ttl time.Duration,
) *Claims {
	now = now.UTC().Truncate(time.Second)
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(now),
		},
		ClientID:  clientID,
		Type:      typ,
		Custom:    custom,
		CustomKey: customKey,
	}
}

// NewJTI returns a sortable unique identifier for the "jti" claim.
func NewJTI(now time.Time) string {
	return idx.NewAt(now).String()
}

// ValidateClaimsKey rejects keys that would shadow a registered claim.
func ValidateClaimsKey(key string) error {
	if key == "" {
		return fmt.Errorf("jwtx: empty claims key")
	}
	if slices.Contains(reservedKeys, key) {
		return fmt.Errorf("jwtx: claims key %q collides with a registered claim", key)
	}
	return nil
}

func (c Claims) key() string {
	if c.CustomKey == "" {
		return DefaultClaimsKey
	}
	return c.CustomKey
}

// MarshalJSON flattens the custom map into the payload under CustomKey.
func (c Claims) MarshalJSON() ([]byte, error) {
	type plain Claims
	base, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if c.Custom == nil {
		return base, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	custom, err := json.Marshal(c.Custom)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal custom claims: %w", err)
	}
	fields[c.key()] = custom

	return json.Marshal(fields)
}

// UnmarshalJSON reads the custom map from the key already set on c, so set
// CustomKey before handing a *Claims to a parser.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	key := c.key()

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*c = Claims(p)
	c.CustomKey = key

	if raw, ok := fields[key]; ok && string(raw) != "null" {
		var custom map[string]any
		if err := json.Unmarshal(raw, &custom); err != nil {
			return fmt.Errorf("jwtx: custom claims %q: %w", key, err)
		}
		c.Custom = custom
	}
	return nil
}

// Authorities reads the string list stored under name in the custom map.
// Non-string entries are skipped.
func (c *Claims) Authorities(name string) []string {
	raw, ok := c.Custom[name]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
