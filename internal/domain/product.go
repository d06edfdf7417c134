package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	BrandID       string          `json:"brandId,omitempty"`
	CategoryIDs   []string        `json:"categoryIds"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	StockQuantity int             `json:"stockQuantity"`
	Active        bool            `json:"active"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// InAnyCategory reports whether the product belongs to one of ids.
func (p Product) InAnyCategory(ids []string) bool {
	for _, own := range p.CategoryIDs {
		for _, id := range ids {
			if own == id {
				return true
			}
		}
	}
	return false
}
