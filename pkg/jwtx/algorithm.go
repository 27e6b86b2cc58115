package jwtx

import (
	"crypto/elliptic"
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm names a JWS signing algorithm a client may be configured with.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
	EdDSA Algorithm = "EdDSA"
)

type family int

const (
	familyHMAC family = iota
	familyRSA
	familyECDSA
	familyEdDSA
)

type algorithm struct {
	method jwt.SigningMethod
	family family
	curve  elliptic.Curve // ECDSA only
}

// algorithms is the fixed table of supported variants. Adding an algorithm
// means adding a row here; nothing else dispatches on the name.
var algorithms = map[Algorithm]algorithm{
	HS256: {method: jwt.SigningMethodHS256, family: familyHMAC},
	HS384: {method: jwt.SigningMethodHS384, family: familyHMAC},
	HS512: {method: jwt.SigningMethodHS512, family: familyHMAC},
	RS256: {method: jwt.SigningMethodRS256, family: familyRSA},
	RS384: {method: jwt.SigningMethodRS384, family: familyRSA},
	RS512: {method: jwt.SigningMethodRS512, family: familyRSA},
	ES256: {method: jwt.SigningMethodES256, family: familyECDSA, curve: elliptic.P256()},
	ES384: {method: jwt.SigningMethodES384, family: familyECDSA, curve: elliptic.P384()},
	ES512: {method: jwt.SigningMethodES512, family: familyECDSA, curve: elliptic.P521()},
	EdDSA: {method: jwt.SigningMethodEdDSA, family: familyEdDSA},
}

var ErrUnsupportedAlgorithm = errors.New("jwtx: unsupported algorithm")

// ParseAlgorithm returns the Algorithm named s.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(s)
	if _, ok := algorithms[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
	return a, nil
}

// Algorithms lists every supported algorithm in a stable order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, len(algorithms))
	for a := range algorithms {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Symmetric reports whether a signs and verifies with the same shared secret.
func (a Algorithm) Symmetric() bool {
	return algorithms[a].family == familyHMAC
}

func (a Algorithm) String() string { return string(a) }
