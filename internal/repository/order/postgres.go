package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
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

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	const q = `
INSERT INTO orders (id, user_id, recipient_name, phone, address, payment_method, subtotal,
                    discount_amount, total_amount, voucher_code, status, points_earned)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)
RETURNING created_at
`
	out := o
	err := r.db.QueryRow(ctx, q, o.ID, o.UserID, o.RecipientName, o.Phone, o.Address, o.PaymentMethod, o.Subtotal,
		o.DiscountAmount, o.TotalAmount, o.VoucherCode, o.Status, o.PointsEarned).Scan(&out.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("order %s: %w", o.ID, domain.ErrAlreadyExists)
		}
		r.logger.Printf("order repo: create user_id=%s id=%s error=%v", o.UserID, o.ID, err)
		return nil, err
	}

	const itemQ = `
INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price_at_purchase, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(itemQ, o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.PriceAtPurchase, it.LineTotal)
	}
	br := r.db.SendBatch(ctx, batch)
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			br.Close()
			r.logger.Printf("order repo: create items id=%s error=%v", o.ID, err)
			return nil, err
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}

	r.logger.Printf("order repo: created user_id=%s id=%s items=%d total=%s", o.UserID, o.ID, len(o.Items), o.TotalAmount)
	return &out, nil
}

const selectOrder = `
SELECT id::text, user_id::text, recipient_name, phone, address, payment_method, subtotal,
       discount_amount, total_amount, COALESCE(voucher_code, ''), status, points_earned, created_at
FROM orders
`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.RecipientName, &o.Phone, &o.Address, &o.PaymentMethod, &o.Subtotal,
		&o.DiscountAmount, &o.TotalAmount, &o.VoucherCode, &o.Status, &o.PointsEarned, &o.CreatedAt)
	return o, err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("order repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%s error=%v", id, err)
		return nil, err
	}
	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if !db.ValidID(userID) {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, selectOrder+`WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var (
		result []domain.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Items = items[result[i].ID]
	}
	r.logger.Printf("order repo: list user_id=%s count=%d", userID, len(result))
	return result, nil
}

func (r *postgresRepo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	out := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	const q = `
SELECT order_id::text, product_id::text, product_name, quantity, price_at_purchase, line_total
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`
	rows, err := r.db.Query(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtPurchase, &it.LineTotal); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *postgresRepo) CountByUserAndVoucher(ctx context.Context, userID, code string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND voucher_code = $2`, userID, code).Scan(&n)
	if err != nil {
		r.logger.Printf("order repo: count user_id=%s voucher=%s error=%v", userID, code, err)
	}
	return n, err
}

func (r *postgresRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		r.logger.Printf("order repo: count user_id=%s error=%v", userID, err)
	}
	return n, err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	if !db.ValidID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		r.logger.Printf("order repo: status id=%s %s->%s error=%v", id, from, to, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the order is gone or someone else moved it first.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return fmt.Errorf("order %s is no longer %s: %w", id, from, domain.ErrInvalidTransition)
	}
	r.logger.Printf("order repo: status id=%s %s->%s", id, from, to)
	return nil
}
