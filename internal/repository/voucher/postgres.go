package voucher

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

const selectVoucher = `
SELECT id::text, code, name, discount_type, discount_value, min_order_value, start_at, end_at,
       usage_limit, used_count, usage_limit_per_user, scope, scope_ids, audience_type, member_tier,
       active, created_at
FROM vouchers
WHERE code = $1
`

func scanVoucher(row pgx.Row) (domain.Voucher, error) {
	var v domain.Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.DiscountType, &v.DiscountValue, &v.MinOrderValue, &v.StartAt, &v.EndAt,
		&v.UsageLimit, &v.UsedCount, &v.UsageLimitPerUser, &v.Scope, &v.ScopeIDs, &v.Audience, &v.MemberTier,
		&v.Active, &v.CreatedAt)
	return v, err
}

func (r *postgresRepo) Create(ctx context.Context, v domain.Voucher) (*domain.Voucher, error) {
	const q = `
INSERT INTO vouchers (code, name, discount_type, discount_value, min_order_value, start_at, end_at,
                      usage_limit, used_count, usage_limit_per_user, scope, scope_ids, audience_type, member_tier, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id::text, created_at
`
	scopeIDs := v.ScopeIDs
	if scopeIDs == nil {
		scopeIDs = []string{}
	}
	out := v
	err := r.db.QueryRow(ctx, q, v.Code, v.Name, v.DiscountType, v.DiscountValue, v.MinOrderValue, v.StartAt, v.EndAt,
		v.UsageLimit, v.UsedCount, v.UsageLimitPerUser, v.Scope, scopeIDs, v.Audience, v.MemberTier, v.Active).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("voucher code %q: %w", v.Code, domain.ErrAlreadyExists)
		}
		r.logger.Printf("voucher repo: create code=%s error=%v", v.Code, err)
		return nil, err
	}
	r.logger.Printf("voucher repo: created code=%s id=%s", out.Code, out.ID)
	return &out, nil
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	return r.get(ctx, selectVoucher, code)
}

func (r *postgresRepo) GetByCodeForUpdate(ctx context.Context, code string) (*domain.Voucher, error) {
	return r.get(ctx, selectVoucher+`FOR UPDATE`, code)
}

func (r *postgresRepo) get(ctx context.Context, q, code string) (*domain.Voucher, error) {
	v, err := scanVoucher(r.db.QueryRow(ctx, q, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("voucher repo: get code=%s not found", code)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("voucher repo: get code=%s error=%v", code, err)
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) IncrementUsage(ctx context.Context, id string) (int, error) {
	const q = `
UPDATE vouchers
SET used_count = used_count + 1
WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)
RETURNING used_count
`
	var used int
	err := r.db.QueryRow(ctx, q, id).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("voucher repo: increment id=%s rejected, limit reached", id)
			return 0, domain.ErrVoucherExhausted
		}
		r.logger.Printf("voucher repo: increment id=%s error=%v", id, err)
		return 0, err
	}
	r.logger.Printf("voucher repo: increment id=%s used_count=%d", id, used)
	return used, nil
}
