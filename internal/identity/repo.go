package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flutterbye/platform/internal/shared"
)

// Repository defines persistence operations for identities.
type Repository interface {
	GetByWallet(ctx context.Context, wallet string) (*Identity, error)
	Upsert(ctx context.Context, id *Identity) error
	UpdateRole(ctx context.Context, wallet string, role Role, permissions []string) (*Identity, error)
	List(ctx context.Context) ([]*Identity, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetByWallet fetches an identity by wallet address.
func (r *PGRepository) GetByWallet(ctx context.Context, wallet string) (*Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT wallet_address, role, permissions, created_at, last_auth_at
		   FROM identities WHERE wallet_address = $1`, wallet)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return id, nil
}

// Upsert inserts the identity or refreshes its last-auth timestamp.
func (r *PGRepository) Upsert(ctx context.Context, id *Identity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO identities (wallet_address, role, permissions, created_at, last_auth_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (wallet_address)
		 DO UPDATE SET last_auth_at = EXCLUDED.last_auth_at`,
		id.WalletAddress, string(id.Role), id.Permissions, id.CreatedAt, id.LastAuthAt)
	return err
}

// UpdateRole replaces the role and explicit permission set for a wallet.
func (r *PGRepository) UpdateRole(ctx context.Context, wallet string, role Role, permissions []string) (*Identity, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE identities SET role = $2, permissions = $3
		  WHERE wallet_address = $1
		 RETURNING wallet_address, role, permissions, created_at, last_auth_at`,
		wallet, string(role), permissions)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return id, nil
}

// List returns all identities ordered by creation time.
func (r *PGRepository) List(ctx context.Context) ([]*Identity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT wallet_address, role, permissions, created_at, last_auth_at
		   FROM identities ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanIdentity(row pgx.Row) (*Identity, error) {
	var (
		id    Identity
		role  string
		perms []string
	)
	var created, lastAuth time.Time
	if err := row.Scan(&id.WalletAddress, &role, &perms, &created, &lastAuth); err != nil {
		return nil, err
	}
	id.Role = Role(role)
	id.Permissions = perms
	id.CreatedAt = created
	id.LastAuthAt = lastAuth
	return &id, nil
}

var _ Repository = (*PGRepository)(nil)
