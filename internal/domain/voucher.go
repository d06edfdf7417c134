package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
	DiscountShipping    DiscountType = "SHIPPING"
)

type ScopeType string

const (
	ScopeGlobal   ScopeType = "GLOBAL"
	ScopeCategory ScopeType = "CATEGORY"
	ScopeProduct  ScopeType = "PRODUCT"
)

type AudienceType string

const (
	AudienceAll     AudienceType = "ALL"
	AudienceNewUser AudienceType = "NEW_USER"
	AudienceMember  AudienceType = "MEMBER"
)

// Voucher is a discount code with a validity window, usage caps, scope and audience.
// UsageLimit 0 means unlimited.
type Voucher struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	DiscountType      DiscountType    `json:"discountType"`
	DiscountValue     decimal.Decimal `json:"discountValue"`
	MinOrderValue     decimal.Decimal `json:"minOrderValue"`
	StartAt           time.Time       `json:"startAt"`
	EndAt             time.Time       `json:"endAt"`
	UsageLimit        int             `json:"usageLimit"`
	UsedCount         int             `json:"usedCount"`
	UsageLimitPerUser int             `json:"usageLimitPerUser"`
	Scope             ScopeType       `json:"scope"`
	ScopeIDs          []string        `json:"scopeIds,omitempty"`
	Audience          AudienceType    `json:"audienceType"`
	MemberTier        MembershipLevel `json:"memberTierId,omitempty"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// NormalizeVoucherCode trims and upper-cases a code.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidAt reports whether now lies in [StartAt, EndAt].
func (v Voucher) ValidAt(now time.Time) bool {
	return !now.Before(v.StartAt) && !now.After(v.EndAt)
}

// Exhausted reports whether the global cap has been reached.
func (v Voucher) Exhausted() bool {
	return v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit
}
