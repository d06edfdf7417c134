package order

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
)

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

// Cache holds per-user order lists. A nil Cache disables caching.
type Cache interface {
	GetUserOrders(ctx context.Context, userID string) ([]domain.Order, bool, error)
	SetUserOrders(ctx context.Context, userID string, orders []domain.Order) error
	InvalidateUserOrders(ctx context.Context, userID string) error
}

type Publisher interface {
	OrderStatusChanged(ctx context.Context, o domain.Order, from domain.OrderStatus) error
}

type Service struct {
	repo      orderRepo
	cache     Cache
	publisher Publisher
	logger    *log.Logger
}

func New(repo orderRepo, cache Cache, publisher Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, cache: cache, publisher: publisher, logger: logger}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByUser serves from the cache when it can. Cache failures fall through to the database.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if s.cache != nil {
		orders, ok, err := s.cache.GetUserOrders(ctx, userID)
		if err != nil {
			s.logger.Printf("order service: cache read user_id=%s error=%v", userID, err)
		} else if ok {
			return orders, nil
		}
	}

	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	if s.cache != nil {
		if err := s.cache.SetUserOrders(ctx, userID, orders); err != nil {
			s.logger.Printf("order service: cache write user_id=%s error=%v", userID, err)
		}
	}
	return orders, nil
}

// UpdateStatus moves an order along the lifecycle. The write only succeeds if
// the order is still in the status that was read.
func (s *Service) UpdateStatus(ctx context.Context, id, next string) (*domain.Order, error) {
	to, ok := domain.ParseOrderStatus(next)
	if !ok {
		return nil, domain.Invalid("unknown order status %q", next)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, domain.ErrInvalidTransition)
	}
	if err := s.repo.UpdateStatus(ctx, id, from, to); err != nil {
		return nil, err
	}

	updated := *current
	updated.Status = to
	s.logger.Printf("order service: status id=%s %s -> %s", id, from, to)

	if s.cache != nil {
		if err := s.cache.InvalidateUserOrders(ctx, updated.UserID); err != nil {
			s.logger.Printf("order service: cache invalidate user_id=%s error=%v", updated.UserID, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.OrderStatusChanged(ctx, updated, from); err != nil {
			s.logger.Printf("order service: publish status change id=%s error=%v", id, err)
		}
	}
	return &updated, nil
}
