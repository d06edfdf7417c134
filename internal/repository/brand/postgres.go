package brand

import (
	"context"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	db db.DBTX
}

func NewPostgres(conn db.DBTX) Repository {
	return &postgresRepo{db: conn}
}

func (r *postgresRepo) Upsert(ctx context.Context, name string) (*domain.Brand, error) {
	const q = `
INSERT INTO brands (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text, name, created_at
`
	var b domain.Brand
	if err := r.db.QueryRow(ctx, q, name).Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *postgresRepo) Exists(ctx context.Context, id string) (bool, error) {
	if !db.ValidID(id) {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM brands WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
