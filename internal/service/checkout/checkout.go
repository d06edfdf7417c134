// Package checkout turns a cart into a persisted order. Every stage runs inside
// one transaction: stock decrements, the voucher usage increment, the order
// insert and the loyalty accrual commit together or not at all.
package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// Item is one cart line as the client saw it.
type Item struct {
	ProductID   string          `json:"productId"`
	Quantity    int             `json:"quantity"`
	ClientPrice decimal.Decimal `json:"clientObservedPrice"`
}

// Request is the input of CreateOrder. VoucherCode may be blank.
type Request struct {
	UserID        string `json:"userId"`
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentMethod string `json:"paymentMethod"`
	VoucherCode   string `json:"voucherCode,omitempty"`
	Items         []Item `json:"items"`
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	AccruePoints(ctx context.Context, id string, points int64) (*domain.User, error)
}

type ProductStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	LockByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
}

type VoucherStore interface {
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.Voucher, error)
	IncrementUsage(ctx context.Context, id string) (int, error)
}

type OrderStore interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	CountByUserAndVoucher(ctx context.Context, userID, code string) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// Stores are the collaborators bound to one transaction.
type Stores struct {
	Users    UserStore
	Products ProductStore
	Vouchers VoucherStore
	Orders   OrderStore
}

// TxRunner runs fn with stores bound to a single transaction. A non-nil error
// from fn rolls back every write made through the stores.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

// EventPublisher announces committed orders.
type EventPublisher interface {
	OrderCreated(ctx context.Context, o domain.Order) error
}

// CacheInvalidator drops cached order reads for a user.
type CacheInvalidator interface {
	InvalidateUserOrders(ctx context.Context, userID string) error
}
