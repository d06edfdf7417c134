package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentBanking PaymentMethod = "BANKING"
	PaymentMomo    PaymentMethod = "MOMO"
)

// CODLimit is the highest order total accepted for cash on delivery.
var CODLimit = decimal.NewFromInt(20_000_000)

// ParsePaymentMethod accepts the known methods case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentCOD, PaymentBanking, PaymentMomo:
		return m, true
	}
	return "", false
}

type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusConfirmed       OrderStatus = "CONFIRMED"
	StatusShipping        OrderStatus = "SHIPPING"
	StatusDelivered       OrderStatus = "DELIVERED"
	StatusCompleted       OrderStatus = "COMPLETED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusReturnRequested OrderStatus = "RETURN_REQUESTED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipping, StatusCancelled},
	StatusShipping:  {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted, StatusCancelled, StatusReturnRequested},
	StatusCompleted: {StatusReturnRequested},
}

// ParseOrderStatus validates a status name.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusShipping, StatusDelivered,
		StatusCompleted, StatusCancelled, StatusReturnRequested:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem is one purchased line. PriceAtPurchase is a snapshot and never re-read from the catalog.
type OrderItem struct {
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

// Order owns its items; users and products are referenced by id only.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	RecipientName  string          `json:"recipientName"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	Items          []OrderItem     `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	VoucherCode    string          `json:"voucherCode,omitempty"`
	Status         OrderStatus     `json:"status"`
	PointsEarned   int64           `json:"pointsEarned"`
	CreatedAt      time.Time       `json:"createdAt"`
}
