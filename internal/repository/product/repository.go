package product

import (
	"context"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// Repository reads and mutates catalog products.
type Repository interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	// LockByIDs returns the products keyed by id with their rows locked until
	// the surrounding transaction ends. Rows are locked in id order.
	LockByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	// DecrementStock subtracts qty only if enough stock remains and returns the
	// new quantity. It returns domain.ErrInsufficientStock when the condition fails.
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
	UpdatePrice(ctx context.Context, id string, salePrice decimal.Decimal) error
}
