package jwtx_test

import (
	"testing"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestPublicJWK(t *testing.T) {
	tests := []struct {
		alg jwtx.Algorithm
		kty string
		crv string
		x   int // decoded coordinate length, base64url chars
	}{
		{jwtx.RS256, "RSA", "", 0},
		{jwtx.ES256, "EC", "P-256", 43},
		{jwtx.ES384, "EC", "P-384", 64},
		{jwtx.ES512, "EC", "P-521", 88},
		{jwtx.EdDSA, "OKP", "Ed25519", 43},
	}

	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			keys, err := jwtx.NewKeys(tt.alg, secretFor(t, tt.alg))
			require.NoError(t, err)

			jwk, ok := keys.PublicJWK("acme")
			require.True(t, ok)
			require.Equal(t, tt.kty, jwk.Kty)
			require.Equal(t, tt.alg.String(), jwk.Alg)
			require.Equal(t, "acme", jwk.Kid)
			require.Equal(t, "sig", jwk.Use)
			require.Equal(t, tt.crv, jwk.Crv)

			if tt.kty == "RSA" {
				require.NotEmpty(t, jwk.N)
				require.Equal(t, "AQAB", jwk.E)
				return
			}
			require.Len(t, jwk.X, tt.x)
		})
	}
}

func TestPublicJWKNeverPublishesSharedSecrets(t *testing.T) {
	keys, err := jwtx.NewKeys(jwtx.HS256, secretFor(t, jwtx.HS256))
	require.NoError(t, err)

	_, ok := keys.PublicJWK("acme")
	require.False(t, ok)
}
