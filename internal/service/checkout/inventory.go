package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// allocation is the result of reserving stock for every cart line.
type allocation struct {
	items    []domain.OrderItem
	products []domain.Product
	subtotal decimal.Decimal
}

// allocate checks and decrements the cart's products in cart order; the first
// failing line decides the error.
//
// Stock is read once before the rows are locked. A product that had no stock
// when the checkout started is OutOfStock; one that ran short because another
// checkout took the units while this one waited for the lock is InsufficientStock.
func allocate(ctx context.Context, store ProductStore, items []Item) (*allocation, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}

	observed, err := store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	seenStock := make(map[string]int, len(observed))
	for _, p := range observed {
		seenStock[p.ID] = p.StockQuantity
	}

	locked, err := store.LockByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	out := &allocation{
		items:    make([]domain.OrderItem, 0, len(items)),
		products: make([]domain.Product, 0, len(items)),
		subtotal: decimal.Zero,
	}
	for _, it := range items {
		p, ok := locked[it.ProductID]
		if !ok {
			return nil, domain.FailProduct(domain.ErrProductNotFound, it.ProductID)
		}
		if !p.Active {
			return nil, domain.FailProduct(domain.ErrProductDiscontinued, p.ID)
		}
		if p.StockQuantity == 0 && seenStock[p.ID] == 0 {
			return nil, domain.FailProduct(domain.ErrOutOfStock, p.ID)
		}
		if p.StockQuantity < it.Quantity {
			return nil, &domain.CheckoutError{Kind: domain.ErrInsufficientStock, ProductID: p.ID, Available: p.StockQuantity}
		}
		if !p.SalePrice.Equal(it.ClientPrice) {
			return nil, &domain.CheckoutError{Kind: domain.ErrPriceMismatch, ProductID: p.ID, Detail: p.SalePrice.String()}
		}

		if _, err := store.DecrementStock(ctx, p.ID, it.Quantity); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, &domain.CheckoutError{Kind: domain.ErrInsufficientStock, ProductID: p.ID, Available: p.StockQuantity}
			}
			return nil, fmt.Errorf("decrement stock for %s: %w", p.ID, err)
		}

		line := p.SalePrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		out.items = append(out.items, domain.OrderItem{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        it.Quantity,
			PriceAtPurchase: p.SalePrice,
			LineTotal:       line,
		})
		out.products = append(out.products, p)
		out.subtotal = out.subtotal.Add(line)
	}
	return out, nil
}
