package checkout

import (
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// checkPayment runs once the discounted total is known.
func checkPayment(method string, total decimal.Decimal) (domain.PaymentMethod, error) {
	if method == "" {
		return "", domain.Fail(domain.ErrMissingPaymentMethod)
	}
	m, ok := domain.ParsePaymentMethod(method)
	if !ok {
		return "", &domain.CheckoutError{Kind: domain.ErrInvalidPaymentMethod, Detail: method}
	}
	if m == domain.PaymentCOD && total.GreaterThan(domain.CODLimit) {
		return "", &domain.CheckoutError{Kind: domain.ErrCodLimitExceeded, Detail: total.String()}
	}
	return m, nil
}
