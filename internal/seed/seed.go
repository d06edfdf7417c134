package seed

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
	categorysvc "storefront/internal/service/category"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Storefront123"

type userSeed struct {
	Email    string
	FullName string
	Role     domain.Role
	Points   int64
}

type productSeed struct {
	SKU           string
	Name          string
	Brand         string
	Categories    []string
	SalePrice     int64
	OriginalPrice int64
	Stock         int
}

type voucherSeed struct {
	Code          string
	Name          string
	Type          domain.DiscountType
	Value         int64
	MinOrderValue int64
	UsageLimit    int
	Audience      domain.AudienceType
	Tier          domain.MembershipLevel
}

var (
	users = []userSeed{
		{Email: "admin@storefront.local", FullName: "Store Admin", Role: domain.RoleAdmin},
		{Email: "lan@storefront.local", FullName: "Tran Thi Lan", Role: domain.RoleCustomer},
		{Email: "minh@storefront.local", FullName: "Le Van Minh", Role: domain.RoleCustomer, Points: 5200},
	}

	categories = []string{"Skin Care", "Makeup", "Fragrance"}

	products = []productSeed{
		{SKU: "LIP-MATTE-01", Name: "Velvet matte lipstick", Brand: "Lumi", Categories: []string{"Makeup"}, SalePrice: 189000, OriginalPrice: 250000, Stock: 120},
		{SKU: "SER-VITC-30", Name: "Vitamin C serum 30ml", Brand: "Derma Lab", Categories: []string{"Skin Care"}, SalePrice: 420000, OriginalPrice: 420000, Stock: 40},
		{SKU: "CRM-HYD-50", Name: "Hydrating cream 50ml", Brand: "Derma Lab", Categories: []string{"Skin Care"}, SalePrice: 315000, OriginalPrice: 350000, Stock: 2},
		{SKU: "EDP-ROSE-50", Name: "Rose eau de parfum 50ml", Brand: "Maison Hoa", Categories: []string{"Fragrance"}, SalePrice: 2950000, OriginalPrice: 3200000, Stock: 8},
	}

	vouchers = []voucherSeed{
		{Code: "WELCOME50K", Name: "Welcome gift", Type: domain.DiscountFixedAmount, Value: 50000, MinOrderValue: 300000, UsageLimit: 1000, Audience: domain.AudienceNewUser},
		{Code: "SALE10", Name: "Ten percent off", Type: domain.DiscountPercentage, Value: 10, MinOrderValue: 200000, UsageLimit: 500, Audience: domain.AudienceAll},
		{Code: "GOLD15", Name: "Gold members", Type: domain.DiscountPercentage, Value: 15, MinOrderValue: 500000, Audience: domain.AudienceMember, Tier: domain.LevelGold},
	}
)

// Apply inserts demo data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	for _, u := range users {
		if err := upsertUser(ctx, pool, u, string(hash)); err != nil {
			return fmt.Errorf("upsert user %s: %w", u.Email, err)
		}
	}

	categoryIDs := make(map[string]string, len(categories))
	for _, name := range categories {
		id, err := upsertCategory(ctx, pool, name)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", name, err)
		}
		categoryIDs[name] = id
	}

	brandIDs := map[string]string{}
	for _, p := range products {
		if _, ok := brandIDs[p.Brand]; !ok {
			id, err := upsertBrand(ctx, pool, p.Brand)
			if err != nil {
				return fmt.Errorf("upsert brand %s: %w", p.Brand, err)
			}
			brandIDs[p.Brand] = id
		}
		if err := upsertProduct(ctx, pool, p, brandIDs[p.Brand], categoryIDs); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	now := time.Now().UTC()
	for _, v := range vouchers {
		if err := upsertVoucher(ctx, pool, v, now); err != nil {
			return fmt.Errorf("upsert voucher %s: %w", v.Code, err)
		}
	}

	logger.Printf("seeded users=%d categories=%d products=%d vouchers=%d", len(users), len(categories), len(products), len(vouchers))
	return nil
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u userSeed, hash string) error {
	const q = `
INSERT INTO users (email, full_name, password_hash, role, order_points, membership_level)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (email) DO UPDATE
SET full_name = EXCLUDED.full_name,
    role = EXCLUDED.role
`
	_, err := pool.Exec(ctx, q, u.Email, u.FullName, hash, string(u.Role), u.Points, string(domain.LevelForPoints(u.Points)))
	return err
}

func upsertCategory(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	const q = `
INSERT INTO categories (name, slug)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	var id string
	err := pool.QueryRow(ctx, q, name, categorysvc.Slugify(name)).Scan(&id)
	return id, err
}

func upsertBrand(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	const q = `
INSERT INTO brands (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	var id string
	err := pool.QueryRow(ctx, q, name).Scan(&id)
	return id, err
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed, brandID string, categoryIDs map[string]string) error {
	const q = `
INSERT INTO products (sku, name, brand_id, sale_price, original_price, stock_quantity, thumbnail)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    brand_id = EXCLUDED.brand_id,
    sale_price = EXCLUDED.sale_price,
    original_price = EXCLUDED.original_price
RETURNING id::text
`
	thumb := "https://cdn.storefront.local/products/" + p.SKU + ".jpg"
	var id string
	if err := pool.QueryRow(ctx, q, p.SKU, p.Name, brandID,
		decimal.NewFromInt(p.SalePrice), decimal.NewFromInt(p.OriginalPrice), p.Stock, thumb).Scan(&id); err != nil {
		return err
	}
	for _, name := range p.Categories {
		if _, err := pool.Exec(ctx, `
INSERT INTO product_categories (product_id, category_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, id, categoryIDs[name]); err != nil {
			return err
		}
	}
	return nil
}

func upsertVoucher(ctx context.Context, pool *pgxpool.Pool, v voucherSeed, now time.Time) error {
	const q = `
INSERT INTO vouchers (code, name, discount_type, discount_value, min_order_value, start_at, end_at, usage_limit, usage_limit_per_user, audience_type, member_tier)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
ON CONFLICT (code) DO UPDATE
SET name = EXCLUDED.name,
    end_at = EXCLUDED.end_at
`
	_, err := pool.Exec(ctx, q, v.Code, v.Name, string(v.Type), decimal.NewFromInt(v.Value), decimal.NewFromInt(v.MinOrderValue),
		now.Add(-time.Hour), now.AddDate(1, 0, 0), v.UsageLimit, string(v.Audience), string(v.Tier))
	return err
}
