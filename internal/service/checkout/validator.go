package checkout

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain"
)

const (
	maxCartItems     = 50
	minNameLength    = 2
	maxNameLength    = 50
	minAddressLength = 10
	maxAddressLength = 255
)

var (
	recipientPattern = regexp.MustCompile(`^[\p{L} ]+$`)
	phonePattern     = regexp.MustCompile(`^0\d{9}$`)
)

// validate checks the request shape without touching any store and returns a
// trimmed copy.
func validate(req Request) (Request, error) {
	out := req
	out.RecipientName = strings.TrimSpace(req.RecipientName)
	out.Phone = strings.TrimSpace(req.Phone)
	out.Address = strings.TrimSpace(req.Address)
	out.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	out.VoucherCode = domain.NormalizeVoucherCode(req.VoucherCode)

	if n := utf8.RuneCountInString(out.RecipientName); n < minNameLength || n > maxNameLength || !recipientPattern.MatchString(out.RecipientName) {
		return out, domain.Fail(domain.ErrInvalidRecipient)
	}
	if !phonePattern.MatchString(out.Phone) {
		return out, domain.Fail(domain.ErrInvalidPhone)
	}
	if n := utf8.RuneCountInString(out.Address); n < minAddressLength || n > maxAddressLength || strings.ContainsAny(out.Address, "<>") {
		return out, domain.Fail(domain.ErrInvalidAddress)
	}

	if len(req.Items) == 0 {
		return out, domain.Fail(domain.ErrEmptyCart)
	}
	if len(req.Items) > maxCartItems {
		return out, domain.Fail(domain.ErrCartTooLarge)
	}
	seen := make(map[string]struct{}, len(req.Items))
	out.Items = make([]Item, len(req.Items))
	for i, it := range req.Items {
		it.ProductID = strings.TrimSpace(it.ProductID)
		if it.Quantity <= 0 {
			return out, domain.FailProduct(domain.ErrInvalidQuantity, it.ProductID)
		}
		if _, dup := seen[it.ProductID]; dup {
			return out, domain.FailProduct(domain.ErrDuplicateItem, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
		out.Items[i] = it
	}

	// A blank method is reported by the payment gate once the total is known.
	if out.PaymentMethod != "" {
		if _, ok := domain.ParsePaymentMethod(out.PaymentMethod); !ok {
			return out, &domain.CheckoutError{Kind: domain.ErrInvalidPaymentMethod, Detail: out.PaymentMethod}
		}
	}
	return out, nil
}
