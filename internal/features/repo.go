package features

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flutterbye/platform/internal/identity"
)

// Repository defines persistence operations for feature gates.
type Repository interface {
	List(ctx context.Context) ([]*Feature, error)
	Upsert(ctx context.Context, f *Feature) error
	Delete(ctx context.Context, featureID string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns all features in insertion order.
func (r *PGRepository) List(ctx context.Context) ([]*Feature, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, category, enabled, required_role,
		        routes, api_endpoints, nav_items, last_updated, updated_by
		   FROM features ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces a feature row.
func (r *PGRepository) Upsert(ctx context.Context, f *Feature) error {
	var role *string
	if f.RequiredRole != nil {
		s := string(*f.RequiredRole)
		role = &s
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO features (id, name, description, category, enabled, required_role,
		                       routes, api_endpoints, nav_items, last_updated, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   category = EXCLUDED.category,
		   enabled = EXCLUDED.enabled,
		   required_role = EXCLUDED.required_role,
		   routes = EXCLUDED.routes,
		   api_endpoints = EXCLUDED.api_endpoints,
		   nav_items = EXCLUDED.nav_items,
		   last_updated = EXCLUDED.last_updated,
		   updated_by = EXCLUDED.updated_by`,
		f.ID, f.Name, f.Description, string(f.Category), f.Enabled, role,
		f.Routes, f.APIEndpoints, f.NavItems, f.LastUpdated, f.UpdatedBy)
	return err
}

// Delete removes a feature row.
func (r *PGRepository) Delete(ctx context.Context, featureID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM features WHERE id = $1`, featureID)
	return err
}

func scanFeature(row pgx.Row) (*Feature, error) {
	var (
		f        Feature
		category string
		role     *string
		updated  time.Time
	)
	if err := row.Scan(&f.ID, &f.Name, &f.Description, &category, &f.Enabled, &role,
		&f.Routes, &f.APIEndpoints, &f.NavItems, &updated, &f.UpdatedBy); err != nil {
		return nil, err
	}
	f.Category = Category(category)
	if role != nil {
		r := identity.Role(*role)
		f.RequiredRole = &r
	}
	f.LastUpdated = updated
	return &f, nil
}

var _ Repository = (*PGRepository)(nil)
