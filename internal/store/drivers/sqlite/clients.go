package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
)

type clientsRepo struct {
	q querier
}

const clientColumns = `client_id, client_secret_hash, signature_secret, signature_algorithm,
	encryption_secret, use_encryption, claims_provider_id, token_type,
	access_token_ttl_seconds, refresh_token_ttl_seconds, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.ClientConfig, error) {
	var (
		c                domain.ClientConfig
		created, updated int64
	)
	err := row.Scan(
		&c.ClientID, &c.ClientSecretHash, &c.SignatureSecret, &c.SignatureAlgorithm,
		&c.EncryptionSecret, &c.UseEncryption, &c.ClaimsProviderID, &c.TokenType,
		&c.AccessTokenTTLSeconds, &c.RefreshTokenTTLSeconds, &created, &updated,
	)
	if err != nil {
		return domain.ClientConfig{}, err
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	c.UpdatedAt = time.Unix(updated, 0).UTC()
	return c, nil
}

func (r *clientsRepo) GetClient(ctx context.Context, clientID string) (domain.ClientConfig, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE client_id = ?`, clientID)
	c, err := scanClient(row)
	if err != nil {
		return domain.ClientConfig{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.ClientConfig, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY client_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.ClientConfig
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) UpsertClient(ctx context.Context, c domain.ClientConfig) error {
	now := time.Now().UTC().Unix()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			client_secret_hash        = excluded.client_secret_hash,
			signature_secret          = excluded.signature_secret,
			signature_algorithm       = excluded.signature_algorithm,
			encryption_secret         = excluded.encryption_secret,
			use_encryption            = excluded.use_encryption,
			claims_provider_id        = excluded.claims_provider_id,
			token_type                = excluded.token_type,
			access_token_ttl_seconds  = excluded.access_token_ttl_seconds,
			refresh_token_ttl_seconds = excluded.refresh_token_ttl_seconds,
			updated_at                = excluded.updated_at`,
		c.ClientID, c.ClientSecretHash, c.SignatureSecret, c.SignatureAlgorithm,
		c.EncryptionSecret, c.UseEncryption, c.ClaimsProviderID, c.TokenType,
		c.AccessTokenTTLSeconds, c.RefreshTokenTTLSeconds, now, now,
	)
	return err
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM clients WHERE client_id = ?`, clientID)
	return err
}
