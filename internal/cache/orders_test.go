package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

func testClient(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "redis-test:6379"
	}
	client, err := Connect(ctx, addr, "", 15)
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	return client
}

func TestOrderCache_RoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	client := testClient(ctx, t)
	defer client.Close()

	c := NewOrderCache(client, time.Minute, nil)
	userID := "cache-user-1"
	_ = c.InvalidateUserOrders(ctx, userID)

	if _, ok, err := c.GetUserOrders(ctx, userID); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	orders := []domain.Order{{ID: "o1", UserID: userID, TotalAmount: decimal.NewFromInt(120000), Status: domain.StatusPending}}
	if err := c.SetUserOrders(ctx, userID, orders); err != nil {
		t.Fatalf("SetUserOrders: %v", err)
	}
	got, ok, err := c.GetUserOrders(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || !got[0].TotalAmount.Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("unexpected cached orders %+v", got)
	}

	if err := c.InvalidateUserOrders(ctx, userID); err != nil {
		t.Fatalf("InvalidateUserOrders: %v", err)
	}
	if _, ok, _ := c.GetUserOrders(ctx, userID); ok {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestOrderCache_CorruptPayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	client := testClient(ctx, t)
	defer client.Close()

	c := NewOrderCache(client, time.Minute, nil)
	if err := client.Set(ctx, userOrdersKey("cache-user-2"), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := c.GetUserOrders(ctx, "cache-user-2"); ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
}

func TestUserOrdersKey(t *testing.T) {
	if got := userOrdersKey("abc"); got != "orders:user:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}
