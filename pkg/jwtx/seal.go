package jwtx

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealAlg = "dir"
	sealEnc = "XC20P"
)

var ErrDecrypt = errors.New("jwtx: cannot open sealed token")

var b64 = base64.RawURLEncoding.Strict()

// sealHeader is the protected header of a sealed token. ClientID is readable
// before decryption so the verifier can pick the key; it is authenticated as
// AAD, so it is only trustworthy after Open succeeds.
type sealHeader struct {
	Alg         string `json:"alg"`
	Enc         string `json:"enc"`
	ClientID    string `json:"cid"`
	ContentType string `json:"cty,omitempty"`
}

// Sealer wraps a signed token in a five part JWE compact envelope using
// direct key agreement and XChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 256 bit content key from secret with HKDF-SHA256,
// bound to clientID, and returns a Sealer for it.
func NewSealer(secret []byte, clientID string) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty sealing secret", ErrInvalidKey)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("tollgate/seal/"+clientID))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("jwtx: derive sealing key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("jwtx: init sealer: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts jws for clientID.
func (s *Sealer) Seal(jws, clientID string) (string, error) {
	hdr, err := json.Marshal(sealHeader{Alg: sealAlg, Enc: sealEnc, ClientID: clientID, ContentType: "JWT"})
	if err != nil {
		return "", err
	}
	encHdr := b64.EncodeToString(hdr)

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("jwtx: generate nonce: %w", err)
	}

	out := s.aead.Seal(nil, nonce, []byte(jws), []byte(encHdr))
	split := len(out) - s.aead.Overhead()
	ciphertext, tag := out[:split], out[split:]

	return strings.Join([]string{
		encHdr,
		"", // no encrypted key with direct agreement
		b64.EncodeToString(nonce),
		b64.EncodeToString(ciphertext),
		b64.EncodeToString(tag),
	}, "."), nil
}

// Open authenticates and decrypts a sealed token and returns the inner JWS.
// Every failure is reported as ErrDecrypt.
func (s *Sealer) Open(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 || parts[1] != "" {
		return "", fmt.Errorf("%w: bad envelope", ErrDecrypt)
	}

	hdr, err := decodeSealHeader(parts[0])
	if err != nil {
		return "", err
	}
	if hdr.Alg != sealAlg || hdr.Enc != sealEnc {
		return "", fmt.Errorf("%w: unsupported alg/enc %s/%s", ErrDecrypt, hdr.Alg, hdr.Enc)
	}

	nonce, err := b64.DecodeString(parts[2])
	if err != nil || len(nonce) != s.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce", ErrDecrypt)
	}
	ciphertext, err := b64.DecodeString(parts[3])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecrypt)
	}
	tag, err := b64.DecodeString(parts[4])
	if err != nil || len(tag) != s.aead.Overhead() {
		return "", fmt.Errorf("%w: bad tag", ErrDecrypt)
	}

	plain, err := s.aead.Open(nil, nonce, append(ciphertext, tag...), []byte(parts[0]))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

func decodeSealHeader(seg string) (sealHeader, error) {
	raw, err := b64.DecodeString(seg)
	if err != nil {
		return sealHeader{}, fmt.Errorf("%w: bad header encoding", ErrDecrypt)
	}
	var hdr sealHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return sealHeader{}, fmt.Errorf("%w: bad header", ErrDecrypt)
	}
	return hdr, nil
}
