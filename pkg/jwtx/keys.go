package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHMACKeyBytes is the shortest shared secret accepted for the HS family.
const MinHMACKeyBytes = 32

var ErrInvalidKey = errors.New("jwtx: invalid key material")

// Keys holds the ready-to-use signing and verification keys for one
// algorithm. Build it once per client and reuse it; it is safe for
// concurrent use.
type Keys struct {
	alg    Algorithm
	method jwt.SigningMethod
	sign   any
	verify any
}

// NewKeys builds Keys from plaintext secret material. HMAC algorithms take
// raw key bytes, the asymmetric families take a PEM encoded private key and
// derive the public half from it.
func NewKeys(alg Algorithm, secret []byte) (*Keys, error) {
	def, ok := algorithms[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}

	k := &Keys{alg: alg, method: def.method}

	switch def.family {
	case familyHMAC:
		if len(secret) < MinHMACKeyBytes {
			return nil, fmt.Errorf("%w: %s secret must be at least %d bytes", ErrInvalidKey, alg, MinHMACKeyBytes)
		}
		key := append([]byte(nil), secret...)
		k.sign, k.verify = key, key

	case familyRSA:
		key, err := parseRSAPrivateKey(secret)
		if err != nil {
			return nil, err
		}
		k.sign, k.verify = key, &key.PublicKey

	case familyECDSA:
		key, err := parseECPrivateKey(secret)
		if err != nil {
			return nil, err
		}
		if key.Curve != def.curve {
			return nil, fmt.Errorf("%w: %s requires curve %s, got %s",
				ErrInvalidKey, alg, def.curve.Params().Name, key.Curve.Params().Name)
		}
		k.sign, k.verify = key, &key.PublicKey

	case familyEdDSA:
		key, err := parseEd25519PrivateKey(secret)
		if err != nil {
			return nil, err
		}
		k.sign, k.verify = key, key.Public()
	}

	return k, nil
}

func (k *Keys) Algorithm() Algorithm { return k.alg }

// PublicKey returns the verification key of an asymmetric algorithm, or nil
// for the HMAC family.
func (k *Keys) PublicKey() crypto.PublicKey {
	if k.alg.Symmetric() {
		return nil
	}
	return k.verify
}

// Sign turns claims into a compact JWS.
func (k *Keys) Sign(claims *Claims) (string, error) {
	t := jwt.NewWithClaims(k.method, claims)
	s, err := t.SignedString(k.sign)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s: %w", k.alg, err)
	}
	return s, nil
}

// Parse checks the signature of a compact JWS against k and decodes its
// payload into claims. Only k's algorithm is accepted. Time based claims are
// left to the caller so it can decide the order of its checks.
func (k *Keys) Parse(raw string, claims *Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{k.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return k.verify, nil
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, jwt.ErrTokenMalformed) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidSig, err)
}

// parseRSAPrivateKey handles both PKCS1 and PKCS8 because otherwise we will
// be chasing a bug for longer than we would be willing to admit.
func parseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM for RSA key", ErrInvalidKey)
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse RSA key: %v", ErrInvalidKey, err)
		}
		key = k
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrInvalidKey, err)
		}
		k, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not RSA private key", ErrInvalidKey)
		}
		key = k
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrInvalidKey, block.Type)
	}

	if key.N.BitLen() < 2048 {
		return nil, fmt.Errorf("%w: RSA key must be at least 2048 bits", ErrInvalidKey)
	}
	return key, nil
}

// parseECPrivateKey accepts PKCS8 and SEC1 ("EC PRIVATE KEY") encodings.
func parseECPrivateKey(pemKey []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM for ECDSA key", ErrInvalidKey)
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse SEC1: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrInvalidKey, err)
		}
		key, ok := priv.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not ECDSA private key", ErrInvalidKey)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrInvalidKey, block.Type)
	}
}

// parseEd25519PrivateKey only accepts PKCS8, the one standard encoding for
// Ed25519 private keys.
func parseEd25519PrivateKey(pemKey []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM for Ed25519 key", ErrInvalidKey)
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("%w: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", ErrInvalidKey, block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrInvalidKey, err)
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not Ed25519 private key", ErrInvalidKey)
	}
	return key, nil
}
