package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/domain"
)

var ErrNotFound = errors.New("store: not found")

// IsTimeout reports whether a failed lookup ran out of time, either because
// the driver returned the deadline error or because ctx expired underneath a
// driver that reports interruption differently.
func IsTimeout(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so that a transaction can hand out the same repos
// scoped to itself.
type Store interface {
	Clients() Clients
	Principals() Principals
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Clients holds client registrations. The token service only reads them;
// writes come from the seed command.
type Clients interface {
	// GetClient returns ErrNotFound for an unregistered client id.
	GetClient(ctx context.Context, clientID string) (domain.ClientConfig, error)

	// ListClients returns every client ordered by id.
	ListClients(ctx context.Context) ([]domain.ClientConfig, error)

	// UpsertClient creates or replaces a client, keeping its created_at.
	UpsertClient(ctx context.Context, c domain.ClientConfig) error

	DeleteClient(ctx context.Context, clientID string) error
}

type Principals interface {
	// GetPrincipal returns ErrNotFound for an unknown username.
	GetPrincipal(ctx context.Context, username string) (domain.Principal, error)

	UpsertPrincipal(ctx context.Context, p domain.Principal) error
}

// RefreshTokens records refresh token ids that have been exchanged.
type RefreshTokens interface {
	// ConsumeRefreshToken marks jti as used. It reports true only for the
	// first caller.
	ConsumeRefreshToken(ctx context.Context, jti, clientID, subject string, expiresAt time.Time) (bool, error)

	// DeleteExpiredRefreshTokens drops records whose token expired before
	// the given instant and reports how many were removed.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}
