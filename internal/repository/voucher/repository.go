package voucher

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists vouchers and their usage counters.
type Repository interface {
	Create(ctx context.Context, v domain.Voucher) (*domain.Voucher, error)
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	// GetByCodeForUpdate locks the voucher row until the transaction ends.
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.Voucher, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// IncrementUsage bumps used_count only while it is below usage_limit (or the
	// limit is 0) and returns the new count. A full voucher yields domain.ErrVoucherExhausted.
	IncrementUsage(ctx context.Context, id string) (int, error)
}
