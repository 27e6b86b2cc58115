package jwtx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
)

// Envelope is what can be learned about a token before any key is known.
type Envelope struct {
	// Sealed is set for tokens that look like an encrypted envelope.
	Sealed bool

	// ClientID is the unverified client the token claims to belong to.
	ClientID string
}

// Inspect reads the routing information of a raw token without verifying
// it. Three part tokens are signed JWS and yield ErrMalformed when they
// cannot be decoded. Anything with four or more parts is treated as a sealed
// envelope and yields ErrDecrypt when its header is unreadable.
func Inspect(raw string) (Envelope, error) {
	n := strings.Count(raw, ".") + 1
	switch {
	case n < 3:
		return Envelope{}, fmt.Errorf("%w: expected 3 or 5 segments, got %d", ErrMalformed, n)

	case n == 3:
		claims := &Claims{}
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if claims.ClientID == "" {
			return Envelope{}, fmt.Errorf("%w: missing cid", ErrMalformed)
		}
		return Envelope{ClientID: claims.ClientID}, nil

	default:
		if n != 5 {
			return Envelope{Sealed: true}, fmt.Errorf("%w: bad envelope", ErrDecrypt)
		}
		hdr, err := decodeSealHeader(raw[:strings.IndexByte(raw, '.')])
		if err != nil {
			return Envelope{Sealed: true}, err
		}
		if hdr.ClientID == "" {
			return Envelope{Sealed: true}, fmt.Errorf("%w: missing cid", ErrDecrypt)
		}
		return Envelope{Sealed: true, ClientID: hdr.ClientID}, nil
	}
}
