package category

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

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id::text, name, COALESCE(slug, ''), created_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert keys categories by slug; a category without a slug is always inserted.
func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (name, slug)
VALUES ($1, NULLIF($2, ''))
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name
RETURNING id::text, COALESCE(slug, ''), created_at
`
	out := domain.Category{Name: c.Name}
	if err := r.db.QueryRow(ctx, q, c.Name, c.Slug).Scan(&out.ID, &out.Slug, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) CountExisting(ctx context.Context, ids []string) (int, error) {
	valid := db.ValidIDs(ids)
	if len(valid) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE id = ANY($1::uuid[])`, valid).Scan(&n)
	return n, err
}
