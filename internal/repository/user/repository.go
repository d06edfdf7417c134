package user

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists storefront accounts and their loyalty balance.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// AccruePoints adds points atomically and recomputes the membership level
	// from the new total. It returns the updated user.
	AccruePoints(ctx context.Context, id string, points int64) (*domain.User, error)
}
