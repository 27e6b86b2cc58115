package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
)

// JWK represents a public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`           // key type: "RSA", "EC", "OKP"
	Use string `json:"use,omitempty"` // "sig"
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC and OKP
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// PublicJWK returns the verification key of k as a JWK. Shared secrets are
// never published, so HMAC keys report false.
func (k *Keys) PublicJWK(kid string) (JWK, bool) {
	alg := k.alg.String()

	switch pub := k.PublicKey().(type) {
	case *rsa.PublicKey:
		return JWK{
			Kty: "RSA",
			Use: "sig",
			Alg: alg,
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}, true

	case *ecdsa.PublicKey:
		// Coordinates are left padded to the field size of the curve.
		size := (pub.Curve.Params().BitSize + 7) / 8
		x := make([]byte, size)
		y := make([]byte, size)
		pub.X.FillBytes(x)
		pub.Y.FillBytes(y)

		return JWK{
			Kty: "EC",
			Use: "sig",
			Alg: alg,
			Kid: kid,
			Crv: pub.Curve.Params().Name,
			X:   base64.RawURLEncoding.EncodeToString(x),
			Y:   base64.RawURLEncoding.EncodeToString(y),
		}, true

	case ed25519.PublicKey:
		return JWK{
			Kty: "OKP",
			Use: "sig",
			Alg: alg,
			Kid: kid,
			Crv: "Ed25519",
			X:   base64.RawURLEncoding.EncodeToString(pub),
		}, true
	}

	return JWK{}, false
}
