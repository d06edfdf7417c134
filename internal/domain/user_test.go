package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLevelForPoints(t *testing.T) {
	cases := map[int64]MembershipLevel{
		0:     LevelBronze,
		999:   LevelBronze,
		1000:  LevelSilver,
		4999:  LevelSilver,
		5000:  LevelGold,
		9999:  LevelGold,
		10000: LevelDiamond,
		50000: LevelDiamond,
	}
	for points, want := range cases {
		if got := LevelForPoints(points); got != want {
			t.Fatalf("points=%d: expected %s, got %s", points, want, got)
		}
		if again := LevelForPoints(points); again != want {
			t.Fatalf("points=%d: recomputation changed level to %s", points, again)
		}
	}
}

func TestPointsForTotal(t *testing.T) {
	if got := PointsForTotal(decimal.NewFromInt(129999)); got != 12 {
		t.Fatalf("expected 12 points, got %d", got)
	}
	if got := PointsForTotal(decimal.NewFromInt(9999)); got != 0 {
		t.Fatalf("expected 0 points, got %d", got)
	}
	if got := PointsForTotal(decimal.Zero); got != 0 {
		t.Fatalf("expected 0 points for zero total, got %d", got)
	}
}

func TestCheckoutError_Is(t *testing.T) {
	err := error(&CheckoutError{Kind: ErrInsufficientStock, ProductID: "p1", Available: 2})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected errors.Is to match InsufficientStock")
	}
	if errors.Is(err, ErrOutOfStock) {
		t.Fatalf("did not expect OutOfStock match")
	}
	ce, ok := AsCheckoutError(err)
	if !ok || ce.Available != 2 || ce.Kind.Category != CategoryResource {
		t.Fatalf("unexpected checkout error %+v", ce)
	}
	if got := err.Error(); got != "not enough stock: product p1 has 2 available" {
		t.Fatalf("unexpected message %q", got)
	}
}
