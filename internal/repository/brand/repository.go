package brand

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	Upsert(ctx context.Context, name string) (*domain.Brand, error)
	Exists(ctx context.Context, id string) (bool, error)
}
