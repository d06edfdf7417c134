package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks rejected admin input (voucher/product creation, imports).
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition is returned when an order status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrorCategory groups checkout failures by what the caller has to do about them.
type ErrorCategory string

const (
	CategoryInput    ErrorCategory = "input"
	CategoryResource ErrorCategory = "resource"
	CategoryVoucher  ErrorCategory = "voucher"
	CategoryPayment  ErrorCategory = "payment"
	CategoryAccount  ErrorCategory = "account"
)

// ErrorKind is a sentinel identifying one checkout failure. Compare with errors.Is.
type ErrorKind struct {
	Code     string
	Category ErrorCategory
	Message  string
}

func (k *ErrorKind) Error() string { return k.Message }

func kind(code string, cat ErrorCategory, msg string) *ErrorKind {
	return &ErrorKind{Code: code, Category: cat, Message: msg}
}

var (
	ErrInvalidRecipient     = kind("InvalidRecipient", CategoryInput, "recipient name must be 2-50 letters or spaces")
	ErrInvalidPhone         = kind("InvalidPhone", CategoryInput, "phone must be 10 digits starting with 0")
	ErrInvalidAddress       = kind("InvalidAddress", CategoryInput, "address must be 10-255 characters without < or >")
	ErrEmptyCart            = kind("EmptyCart", CategoryInput, "cart is empty")
	ErrCartTooLarge         = kind("CartTooLarge", CategoryInput, "cart exceeds 50 line items")
	ErrInvalidQuantity      = kind("InvalidQuantity", CategoryInput, "quantity must be positive")
	ErrDuplicateItem        = kind("DuplicateItem", CategoryInput, "cart contains the same product twice")
	ErrInvalidPaymentMethod = kind("InvalidPaymentMethod", CategoryInput, "unsupported payment method")

	ErrProductNotFound     = kind("ProductNotFound", CategoryResource, "product not found")
	ErrProductDiscontinued = kind("ProductDiscontinued", CategoryResource, "product is no longer sold")
	ErrOutOfStock          = kind("OutOfStock", CategoryResource, "product is out of stock")
	ErrInsufficientStock   = kind("InsufficientStock", CategoryResource, "not enough stock")
	ErrPriceMismatch       = kind("PriceMismatch", CategoryResource, "product price has changed")

	ErrVoucherNotFound            = kind("VoucherNotFound", CategoryVoucher, "voucher not found")
	ErrVoucherExpiredOrNotStarted = kind("VoucherExpiredOrNotStarted", CategoryVoucher, "voucher is not valid at this time")
	ErrVoucherExhausted           = kind("VoucherExhausted", CategoryVoucher, "voucher usage limit reached")
	ErrBelowMinimumOrder          = kind("BelowMinimumOrder", CategoryVoucher, "order value below voucher minimum")
	ErrPersonalLimitExceeded      = kind("PersonalLimitExceeded", CategoryVoucher, "voucher already used the maximum number of times")
	ErrScopeMismatch              = kind("ScopeMismatch", CategoryVoucher, "voucher does not apply to the items in the cart")
	ErrNotEligibleNewUserOnly     = kind("NotEligibleNewUserOnly", CategoryVoucher, "voucher is reserved for first orders")
	ErrNotEligibleMemberOnly      = kind("NotEligibleMemberOnly", CategoryVoucher, "voucher requires a higher membership level")

	ErrMissingPaymentMethod = kind("MissingPaymentMethod", CategoryPayment, "payment method required")
	ErrCodLimitExceeded     = kind("CodLimitExceeded", CategoryPayment, "order total exceeds the cash on delivery limit")

	ErrUserNotFound    = kind("UserNotFound", CategoryAccount, "user not found")
	ErrAccountInactive = kind("AccountInactive", CategoryAccount, "account is inactive")
	ErrNotCustomer     = kind("NotCustomer", CategoryAccount, "only customers can place orders")
)

// CheckoutError is a checkout failure with optional context for the caller.
type CheckoutError struct {
	Kind          *ErrorKind
	ProductID     string
	Available     int
	MinOrderValue decimal.Decimal
	Detail        string
}

func (e *CheckoutError) Error() string {
	switch {
	case e.ProductID != "" && e.Kind == ErrInsufficientStock:
		return fmt.Sprintf("%s: product %s has %d available", e.Kind.Message, e.ProductID, e.Available)
	case e.ProductID != "":
		return fmt.Sprintf("%s: product %s", e.Kind.Message, e.ProductID)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind.Message, e.Detail)
	}
	return e.Kind.Message
}

func (e *CheckoutError) Unwrap() error { return e.Kind }

// Fail builds a CheckoutError of the given kind.
func Fail(k *ErrorKind) *CheckoutError {
	return &CheckoutError{Kind: k}
}

// FailProduct builds a CheckoutError tied to a product.
func FailProduct(k *ErrorKind, productID string) *CheckoutError {
	return &CheckoutError{Kind: k, ProductID: productID}
}

// AsCheckoutError extracts a CheckoutError from err, if any.
func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce, true
	}
	var k *ErrorKind
	if errors.As(err, &k) {
		return &CheckoutError{Kind: k}, true
	}
	return nil, false
}

// Invalid wraps ErrValidation with a field message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
