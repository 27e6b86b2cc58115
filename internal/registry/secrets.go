package registry

import (
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// SecretResolver turns stored secret text into usable key bytes. It runs
// once per registry population, never per token.
type SecretResolver interface {
	ResolveSecret(raw string) ([]byte, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(raw string) ([]byte, error)

func (f SecretResolverFunc) ResolveSecret(raw string) ([]byte, error) { return f(raw) }

// CipherSecrets opens "{cipher}" values with the process master key and
// passes every other value through as its raw bytes.
type CipherSecrets struct{}

func (CipherSecrets) ResolveSecret(raw string) ([]byte, error) {
	if strings.HasPrefix(raw, cryptox.CipherPrefix) {
		return cryptox.OpenSecret(raw)
	}
	return []byte(raw), nil
}
