package voucher

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

const (
	maxCodeLength      = 20
	maxNameLength      = 50
	maxUsageLimit      = 100000
	maxCategoryScope   = 20
	maxProductScope    = 200
	maxValidity        = 3 * 365 * 24 * time.Hour
	startAtGrace       = 60 * time.Second
	nameForbiddenRunes = `<>/'"{}`
)

var (
	codePattern      = regexp.MustCompile(`^[A-Z0-9-]+$`)
	reservedPrefixes = []string{"MKT", "FLS", "VNPAY"}

	minFixedDiscount = decimal.NewFromInt(1000)
	maxFixedDiscount = decimal.NewFromInt(10_000_000)
	minOrderFloor    = decimal.NewFromInt(1000)
	hundred          = decimal.NewFromInt(100)
)

type voucherRepo interface {
	Create(ctx context.Context, v domain.Voucher) (*domain.Voucher, error)
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

type categoryRepo interface {
	CountExisting(ctx context.Context, ids []string) (int, error)
}

type productRepo interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

type Service struct {
	repo       voucherRepo
	categories categoryRepo
	products   productRepo
	logger     *log.Logger
	now        func() time.Time
}

func New(repo voucherRepo, categories categoryRepo, products productRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, categories: categories, products: products, logger: logger, now: time.Now}
}

// CreateInput is the admin payload for a new voucher. Zero values take defaults.
type CreateInput struct {
	Code              string                 `json:"code"`
	Name              string                 `json:"name"`
	DiscountType      domain.DiscountType    `json:"discountType"`
	DiscountValue     decimal.Decimal        `json:"discountValue"`
	MinOrderValue     decimal.Decimal        `json:"minOrderValue"`
	StartAt           time.Time              `json:"startAt"`
	EndAt             time.Time              `json:"endAt"`
	UsageLimit        int                    `json:"usageLimit"`
	UsageLimitPerUser *int                   `json:"usageLimitPerUser,omitempty"`
	Scope             domain.ScopeType       `json:"scope"`
	ScopeIDs          []string               `json:"scopeIds"`
	Audience          domain.AudienceType    `json:"audienceType"`
	MemberTier        domain.MembershipLevel `json:"memberTierId"`
}

func (s *Service) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	return s.repo.GetByCode(ctx, domain.NormalizeVoucherCode(code))
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Voucher, error) {
	v, err := s.build(in)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, v.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("voucher code %q: %w", v.Code, domain.ErrAlreadyExists)
	}

	if err := s.checkScopeTargets(ctx, v); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, v)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("voucher service: created code=%s type=%s scope=%s", created.Code, created.DiscountType, created.Scope)
	return created, nil
}

// build applies defaults and every rule that needs no lookup.
func (s *Service) build(in CreateInput) (domain.Voucher, error) {
	v := domain.Voucher{
		Code:          domain.NormalizeVoucherCode(in.Code),
		Name:          strings.TrimSpace(in.Name),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinOrderValue: in.MinOrderValue,
		StartAt:       in.StartAt.UTC(),
		EndAt:         in.EndAt.UTC(),
		UsageLimit:    in.UsageLimit,
		Scope:         in.Scope,
		ScopeIDs:      in.ScopeIDs,
		Audience:      in.Audience,
		MemberTier:    in.MemberTier,
		Active:        true,
	}
	if v.Scope == "" {
		v.Scope = domain.ScopeGlobal
	}
	if v.Audience == "" {
		v.Audience = domain.AudienceAll
	}
	v.UsageLimitPerUser = 1
	if in.UsageLimitPerUser != nil {
		v.UsageLimitPerUser = *in.UsageLimitPerUser
	}

	checks := []func(*domain.Voucher) error{
		checkCode,
		checkName,
		checkDiscount,
		s.checkWindow,
		checkUsage,
		checkScopeShape,
		checkAudience,
	}
	for _, check := range checks {
		if err := check(&v); err != nil {
			return domain.Voucher{}, err
		}
	}
	return v, nil
}

func checkCode(v *domain.Voucher) error {
	switch {
	case v.Code == "":
		return domain.Invalid("code is required")
	case len(v.Code) > maxCodeLength:
		return domain.Invalid("code must be at most %d characters", maxCodeLength)
	case !codePattern.MatchString(v.Code):
		return domain.Invalid("code may only contain A-Z, 0-9 and -")
	case strings.Contains(v.Code, "--"):
		return domain.Invalid("code must not contain consecutive dashes")
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(v.Code, prefix) {
			return domain.Invalid("code prefix %s is reserved", prefix)
		}
	}
	return nil
}

func checkName(v *domain.Voucher) error {
	n := len([]rune(v.Name))
	if n == 0 || n > maxNameLength {
		return domain.Invalid("name must be 1-%d characters", maxNameLength)
	}
	allDigits := true
	for _, r := range v.Name {
		if !unicode.IsDigit(r) {
			allDigits = false
		}
		if strings.ContainsRune(nameForbiddenRunes, r) {
			return domain.Invalid("name must not contain %q", r)
		}
		if isEmoji(r) {
			return domain.Invalid("name must not contain emoji")
		}
	}
	if allDigits {
		return domain.Invalid("name must not be only digits")
	}
	return nil
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r == 0x200D:
		return true
	}
	return false
}

func checkDiscount(v *domain.Voucher) error {
	if v.MinOrderValue.LessThan(minOrderFloor) {
		return domain.Invalid("minOrderValue must be at least %s", minOrderFloor)
	}
	switch v.DiscountType {
	case domain.DiscountPercentage:
		if v.DiscountValue.LessThan(decimal.NewFromInt(1)) || v.DiscountValue.GreaterThan(hundred) {
			return domain.Invalid("percentage discount must be between 1 and 100")
		}
	case domain.DiscountFixedAmount:
		if v.DiscountValue.LessThan(minFixedDiscount) || v.DiscountValue.GreaterThan(maxFixedDiscount) {
			return domain.Invalid("fixed discount must be between %s and %s", minFixedDiscount, maxFixedDiscount)
		}
		if !v.DiscountValue.Equal(v.DiscountValue.Truncate(0)) {
			return domain.Invalid("fixed discount must be a whole amount")
		}
		if v.DiscountValue.GreaterThan(v.MinOrderValue) {
			return domain.Invalid("fixed discount must not exceed minOrderValue")
		}
	case domain.DiscountShipping:
		if v.DiscountValue.IsNegative() {
			return domain.Invalid("shipping discount must not be negative")
		}
	default:
		return domain.Invalid("unknown discount type %q", v.DiscountType)
	}
	return nil
}

func (s *Service) checkWindow(v *domain.Voucher) error {
	if v.StartAt.IsZero() || v.EndAt.IsZero() {
		return domain.Invalid("startAt and endAt are required")
	}
	if v.StartAt.Before(s.now().Add(-startAtGrace)) {
		return domain.Invalid("startAt must not be in the past")
	}
	if !v.EndAt.After(v.StartAt) {
		return domain.Invalid("endAt must be after startAt")
	}
	if v.EndAt.Sub(v.StartAt) > maxValidity {
		return domain.Invalid("validity window must not exceed 3 years")
	}
	return nil
}

func checkUsage(v *domain.Voucher) error {
	if v.UsageLimit < 0 || v.UsageLimit > maxUsageLimit {
		return domain.Invalid("usageLimit must be between 0 and %d", maxUsageLimit)
	}
	if v.UsageLimitPerUser < 1 {
		return domain.Invalid("usageLimitPerUser must be at least 1")
	}
	if v.UsageLimit > 0 && v.UsageLimitPerUser > v.UsageLimit {
		return domain.Invalid("usageLimitPerUser must not exceed usageLimit")
	}
	return nil
}

func checkScopeShape(v *domain.Voucher) error {
	v.ScopeIDs = dedupe(v.ScopeIDs)
	switch v.Scope {
	case domain.ScopeGlobal:
		v.ScopeIDs = nil
	case domain.ScopeCategory:
		if len(v.ScopeIDs) < 1 || len(v.ScopeIDs) > maxCategoryScope {
			return domain.Invalid("category scope needs 1-%d ids", maxCategoryScope)
		}
	case domain.ScopeProduct:
		if len(v.ScopeIDs) < 1 || len(v.ScopeIDs) > maxProductScope {
			return domain.Invalid("product scope needs 1-%d ids", maxProductScope)
		}
	default:
		return domain.Invalid("unknown scope %q", v.Scope)
	}
	return nil
}

func checkAudience(v *domain.Voucher) error {
	switch v.Audience {
	case domain.AudienceAll:
		v.MemberTier = ""
	case domain.AudienceNewUser:
		if v.UsageLimitPerUser != 1 {
			return domain.Invalid("NEW_USER vouchers allow one use per user")
		}
		v.MemberTier = ""
	case domain.AudienceMember:
		if !v.MemberTier.Valid() {
			return domain.Invalid("MEMBER vouchers need a valid memberTierId")
		}
	default:
		return domain.Invalid("unknown audience %q", v.Audience)
	}
	return nil
}

func (s *Service) checkScopeTargets(ctx context.Context, v domain.Voucher) error {
	switch v.Scope {
	case domain.ScopeCategory:
		n, err := s.categories.CountExisting(ctx, v.ScopeIDs)
		if err != nil {
			return err
		}
		if n != len(v.ScopeIDs) {
			return domain.Invalid("unknown category in scope")
		}
	case domain.ScopeProduct:
		products, err := s.products.ListByIDs(ctx, v.ScopeIDs)
		if err != nil {
			return err
		}
		if len(products) != len(v.ScopeIDs) {
			return domain.Invalid("unknown product in scope")
		}
		for _, p := range products {
			if !p.Active {
				return domain.Invalid("product %s is not active", p.ID)
			}
			if v.DiscountType == domain.DiscountFixedAmount && v.DiscountValue.GreaterThan(p.SalePrice) {
				return domain.Invalid("fixed discount exceeds price of product %s", p.ID)
			}
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
