package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"storefront/internal/domain"
)

// OrderCache keeps each user's order list in Redis until the next checkout
// or status change invalidates it.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func NewOrderCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *OrderCache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &OrderCache{client: client, ttl: ttl, logger: logger}
}

func userOrdersKey(userID string) string {
	return "orders:user:" + userID
}

// GetUserOrders reports a miss with ok=false.
func (c *OrderCache) GetUserOrders(ctx context.Context, userID string) ([]domain.Order, bool, error) {
	raw, err := c.client.Get(ctx, userOrdersKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var orders []domain.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		// A payload from an older layout is treated as a miss.
		c.logger.Printf("order cache: decode user_id=%s error=%v", userID, err)
		return nil, false, nil
	}
	return orders, true, nil
}

func (c *OrderCache) SetUserOrders(ctx context.Context, userID string, orders []domain.Order) error {
	raw, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userOrdersKey(userID), raw, c.ttl).Err()
}

func (c *OrderCache) InvalidateUserOrders(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, userOrdersKey(userID)).Err(); err != nil {
		return err
	}
	c.logger.Printf("order cache: invalidated user_id=%s", userID)
	return nil
}
