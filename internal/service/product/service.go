package product

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

const (
	maxSKULength  = 50
	maxNameLength = 255
)

var skuPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type productRepo interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	UpdatePrice(ctx context.Context, id string, salePrice decimal.Decimal) error
}

type brandRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type categoryRepo interface {
	CountExisting(ctx context.Context, ids []string) (int, error)
}

type Service struct {
	repo       productRepo
	brands     brandRepo
	categories categoryRepo
	logger     *log.Logger
}

func New(repo productRepo, brands brandRepo, categories categoryRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, brands: brands, categories: categories, logger: logger}
}

type CreateInput struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	BrandID       string          `json:"brandId"`
	CategoryIDs   []string        `json:"categoryIds"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	StockQuantity int             `json:"stockQuantity"`
	Thumbnail     string          `json:"thumbnail"`
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	p, err := validate(in)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsBySKU(ctx, p.SKU)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("product sku %q: %w", p.SKU, domain.ErrAlreadyExists)
	}

	ok, err := s.brands.Exists(ctx, p.BrandID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Invalid("brand %s does not exist", p.BrandID)
	}

	n, err := s.categories.CountExisting(ctx, p.CategoryIDs)
	if err != nil {
		return nil, err
	}
	if n != len(p.CategoryIDs) {
		return nil, domain.Invalid("unknown category in categoryIds")
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("product service: created id=%s sku=%s stock=%d", created.ID, created.SKU, created.StockQuantity)
	return created, nil
}

// UpdatePrice changes the catalog price. Existing orders keep the price they were placed at.
func (s *Service) UpdatePrice(ctx context.Context, id string, salePrice decimal.Decimal) error {
	if salePrice.IsNegative() {
		return domain.Invalid("salePrice must not be negative")
	}
	return s.repo.UpdatePrice(ctx, id, salePrice)
}

func validate(in CreateInput) (domain.Product, error) {
	p := domain.Product{
		SKU:           strings.TrimSpace(in.SKU),
		Name:          strings.TrimSpace(in.Name),
		BrandID:       strings.TrimSpace(in.BrandID),
		SalePrice:     in.SalePrice,
		OriginalPrice: in.OriginalPrice,
		StockQuantity: in.StockQuantity,
		Thumbnail:     strings.TrimSpace(in.Thumbnail),
		Active:        true,
	}
	seen := make(map[string]struct{}, len(in.CategoryIDs))
	for _, id := range in.CategoryIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p.CategoryIDs = append(p.CategoryIDs, id)
	}

	switch {
	case p.SKU == "":
		return p, domain.Invalid("sku is required")
	case len(p.SKU) > maxSKULength:
		return p, domain.Invalid("sku must be at most %d characters", maxSKULength)
	case !skuPattern.MatchString(p.SKU):
		return p, domain.Invalid("sku may only contain letters, digits, _ and -")
	case p.Name == "" || len([]rune(p.Name)) > maxNameLength:
		return p, domain.Invalid("name must be 1-%d characters", maxNameLength)
	case p.Thumbnail == "":
		return p, domain.Invalid("thumbnail is required")
	case p.SalePrice.IsNegative():
		return p, domain.Invalid("salePrice must not be negative")
	case p.OriginalPrice.LessThan(p.SalePrice):
		return p, domain.Invalid("originalPrice must be at least salePrice")
	case p.StockQuantity < 0:
		return p, domain.Invalid("stockQuantity must not be negative")
	case p.BrandID == "":
		return p, domain.Invalid("brandId is required")
	case len(p.CategoryIDs) == 0:
		return p, domain.Invalid("at least one category is required")
	}
	return p, nil
}
