package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type voucherInput struct {
	code     string
	user     *domain.User
	subtotal decimal.Decimal
	products []domain.Product
	now      time.Time
}

// redeemVoucher validates the code against the cart and the user's history,
// prices it and consumes one usage slot. A blank code is a no-op.
func redeemVoucher(ctx context.Context, st Stores, in voucherInput) (*domain.Voucher, decimal.Decimal, error) {
	if in.code == "" {
		return nil, decimal.Zero, nil
	}

	v, err := st.Vouchers.GetByCodeForUpdate(ctx, in.code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, decimal.Zero, &domain.CheckoutError{Kind: domain.ErrVoucherNotFound, Detail: in.code}
		}
		return nil, decimal.Zero, fmt.Errorf("load voucher %s: %w", in.code, err)
	}
	if !v.Active {
		return nil, decimal.Zero, &domain.CheckoutError{Kind: domain.ErrVoucherNotFound, Detail: in.code}
	}
	if !v.ValidAt(in.now) {
		return nil, decimal.Zero, domain.Fail(domain.ErrVoucherExpiredOrNotStarted)
	}
	if v.Exhausted() {
		return nil, decimal.Zero, domain.Fail(domain.ErrVoucherExhausted)
	}
	if in.subtotal.LessThan(v.MinOrderValue) {
		return nil, decimal.Zero, &domain.CheckoutError{Kind: domain.ErrBelowMinimumOrder, MinOrderValue: v.MinOrderValue}
	}

	if v.UsageLimitPerUser > 0 {
		used, err := st.Orders.CountByUserAndVoucher(ctx, in.user.ID, v.Code)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("count voucher usage: %w", err)
		}
		if used >= v.UsageLimitPerUser {
			return nil, decimal.Zero, domain.Fail(domain.ErrPersonalLimitExceeded)
		}
	}

	if !scopeMatches(*v, in.products) {
		return nil, decimal.Zero, domain.Fail(domain.ErrScopeMismatch)
	}

	switch v.Audience {
	case domain.AudienceNewUser:
		orders, err := st.Orders.CountByUser(ctx, in.user.ID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("count orders: %w", err)
		}
		if orders > 0 {
			return nil, decimal.Zero, domain.Fail(domain.ErrNotEligibleNewUserOnly)
		}
	case domain.AudienceMember:
		if in.user.MembershipLevel.Rank() < v.MemberTier.Rank() {
			return nil, decimal.Zero, domain.Fail(domain.ErrNotEligibleMemberOnly)
		}
	}

	discount := discountFor(*v, in.subtotal)

	if _, err := st.Vouchers.IncrementUsage(ctx, v.ID); err != nil {
		if errors.Is(err, domain.ErrVoucherExhausted) {
			return nil, decimal.Zero, domain.Fail(domain.ErrVoucherExhausted)
		}
		return nil, decimal.Zero, fmt.Errorf("consume voucher %s: %w", v.Code, err)
	}
	return v, discount, nil
}

// scopeMatches passes GLOBAL vouchers and scoped vouchers where at least one
// cart product is in scope. A scoped voucher without ids never matches.
func scopeMatches(v domain.Voucher, products []domain.Product) bool {
	switch v.Scope {
	case domain.ScopeGlobal:
		return true
	case domain.ScopeProduct:
		if len(v.ScopeIDs) == 0 {
			return false
		}
		for _, p := range products {
			for _, id := range v.ScopeIDs {
				if p.ID == id {
					return true
				}
			}
		}
		return false
	case domain.ScopeCategory:
		if len(v.ScopeIDs) == 0 {
			return false
		}
		for _, p := range products {
			if p.InAnyCategory(v.ScopeIDs) {
				return true
			}
		}
		return false
	}
	return false
}

// discountFor prices a voucher. Unknown types, SHIPPING included, discount nothing.
func discountFor(v domain.Voucher, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch v.DiscountType {
	case domain.DiscountFixedAmount:
		d = v.DiscountValue
	case domain.DiscountPercentage:
		d = subtotal.Mul(v.DiscountValue).Div(hundred).Round(2)
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
