package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
)

type principalsRepo struct {
	q querier
}

func (r *principalsRepo) GetPrincipal(ctx context.Context, username string) (domain.Principal, error) {
	var (
		p           domain.Principal
		authorities string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT username, password_hash, authorities, enabled, locked,
		       credentials_expired, account_expired, mfa_secret
		FROM principals WHERE username = ?`, username,
	).Scan(
		&p.Username, &p.PasswordHash, &authorities, &p.Enabled, &p.Locked,
		&p.CredentialsExpired, &p.AccountExpired, &p.MFASecret,
	)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}

	// Authorities are stored space separated, like OAuth2 scopes.
	p.Authorities = strings.Fields(authorities)
	return p, nil
}

func (r *principalsRepo) UpsertPrincipal(ctx context.Context, p domain.Principal) error {
	now := time.Now().UTC().Unix()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO principals (username, password_hash, authorities, enabled, locked,
		                        credentials_expired, account_expired, mfa_secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash       = excluded.password_hash,
			authorities         = excluded.authorities,
			enabled             = excluded.enabled,
			locked              = excluded.locked,
			credentials_expired = excluded.credentials_expired,
			account_expired     = excluded.account_expired,
			mfa_secret          = excluded.mfa_secret,
			updated_at          = excluded.updated_at`,
		p.Username, p.PasswordHash, strings.Join(p.Authorities, " "), p.Enabled, p.Locked,
		p.CredentialsExpired, p.AccountExpired, p.MFASecret, now, now,
	)
	return err
}
