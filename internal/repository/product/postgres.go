package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	db     db.DBTX
	logger *log.Logger
}

// NewPostgres returns a Repository on a pool or on an open transaction.
func NewPostgres(conn db.DBTX, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{db: conn, logger: logger}
}

const selectProduct = `
SELECT p.id::text, p.sku, p.name, COALESCE(p.brand_id::text, ''), p.sale_price, p.original_price,
       p.stock_quantity, p.active, p.thumbnail, p.created_at,
       ARRAY(SELECT pc.category_id::text FROM product_categories pc WHERE pc.product_id = p.id ORDER BY pc.category_id)
FROM products p
`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.BrandID, &p.SalePrice, &p.OriginalPrice,
		&p.StockQuantity, &p.Active, &p.Thumbnail, &p.CreatedAt, &p.CategoryIDs)
	return p, err
}

// Create inserts the product and its category links in one statement.
func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
WITH ins AS (
    INSERT INTO products (sku, name, brand_id, sale_price, original_price, stock_quantity, active, thumbnail)
    VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
    RETURNING id, created_at
), links AS (
    INSERT INTO product_categories (product_id, category_id)
    SELECT ins.id, c.id FROM ins CROSS JOIN unnest($9::uuid[]) AS c(id)
    ON CONFLICT DO NOTHING
)
SELECT id::text, created_at FROM ins
`
	categoryIDs := p.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []string{}
	}
	out := p
	err := r.db.QueryRow(ctx, q, p.SKU, p.Name, p.BrandID, p.SalePrice, p.OriginalPrice, p.StockQuantity, p.Active, p.Thumbnail, categoryIDs).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("product sku %q: %w", p.SKU, domain.ErrAlreadyExists)
		}
		r.logger.Printf("product repo: create sku=%s error=%v", p.SKU, err)
		return nil, err
	}
	r.logger.Printf("product repo: created sku=%s id=%s categories=%d", out.SKU, out.ID, len(categoryIDs))
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+`WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	return r.list(ctx, selectProduct+`WHERE p.id = ANY($1::uuid[]) ORDER BY p.id`, ids)
}

func (r *postgresRepo) LockByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	// Fixed lock order keeps two checkouts over the same products from deadlocking.
	list, err := r.list(ctx, selectProduct+`WHERE p.id = ANY($1::uuid[]) ORDER BY p.id FOR UPDATE OF p`, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	r.logger.Printf("product repo: locked requested=%d found=%d", len(ids), len(out))
	return out, nil
}

func (r *postgresRepo) list(ctx context.Context, q string, ids []string) ([]domain.Product, error) {
	valid := db.ValidIDs(ids)
	if len(valid) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, q, valid)
	if err != nil {
		r.logger.Printf("product repo: list ids=%d error=%v", len(valid), err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	const q = `
UPDATE products
SET stock_quantity = stock_quantity - $2
WHERE id = $1 AND stock_quantity >= $2
RETURNING stock_quantity
`
	var remaining int
	err := r.db.QueryRow(ctx, q, id, qty).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: decrement id=%s qty=%d rejected", id, qty)
			return 0, domain.ErrInsufficientStock
		}
		r.logger.Printf("product repo: decrement id=%s qty=%d error=%v", id, qty, err)
		return 0, err
	}
	r.logger.Printf("product repo: decrement id=%s qty=%d remaining=%d", id, qty, remaining)
	return remaining, nil
}

func (r *postgresRepo) UpdatePrice(ctx context.Context, id string, salePrice decimal.Decimal) error {
	if !db.ValidID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE products SET sale_price = $2 WHERE id = $1`, id, salePrice)
	if err != nil {
		r.logger.Printf("product repo: update price id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("product repo: update price id=%s sale_price=%s", id, salePrice)
	return nil
}
