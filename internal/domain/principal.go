package domain

import (
	"fmt"

	"github.com/aussiebroadwan/tollgate/pkg/tokenx"
)

// Principal is an authenticated subject as supplied by the principal store.
type Principal struct {
	Username    string
	Authorities []string

	Enabled            bool
	Locked             bool
	CredentialsExpired bool
	AccountExpired     bool

	PasswordHash string
	MFASecret    string // base32 TOTP secret, empty when MFA is off
}

// Status returns ErrPrincipalDisabled wrapped with the first failing account
// flag, or nil when the account may sign in.
func (p Principal) Status() error {
	switch {
	case !p.Enabled:
		return fmt.Errorf("%w: account disabled", tokenx.ErrPrincipalDisabled)
	case p.Locked:
		return fmt.Errorf("%w: account locked", tokenx.ErrPrincipalDisabled)
	case p.AccountExpired:
		return fmt.Errorf("%w: account expired", tokenx.ErrPrincipalDisabled)
	case p.CredentialsExpired:
		return fmt.Errorf("%w: credentials expired", tokenx.ErrPrincipalDisabled)
	}
	return nil
}
