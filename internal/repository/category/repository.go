package category

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Category, error)
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
	// CountExisting returns how many of ids name an existing category.
	CountExisting(ctx context.Context, ids []string) (int, error)
}
