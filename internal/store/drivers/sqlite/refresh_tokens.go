package sqlite

import (
	"context"
	"time"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) ConsumeRefreshToken(
	ctx context.Context,
	jti, clientID, subject string,
	expiresAt time.Time,
) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO consumed_refresh_tokens (jti, client_id, subject, expires_at, consumed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (jti) DO NOTHING`,
		jti, clientID, subject, expiresAt.UTC().Unix(), time.Now().UTC().Unix(),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM consumed_refresh_tokens WHERE expires_at < ?`, before.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
