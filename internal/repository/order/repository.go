package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository appends orders and answers usage-count queries. Orders are never deleted.
type Repository interface {
	// Create inserts the order and its items. Use it on a transaction so both land together.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// CountByUserAndVoucher counts the user's orders placed with code.
	CountByUserAndVoucher(ctx context.Context, userID, code string) (int, error)
	// CountByUser counts every order the user has placed.
	CountByUser(ctx context.Context, userID string) (int, error)
	// UpdateStatus moves the order from one status to another only if it is still in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}
