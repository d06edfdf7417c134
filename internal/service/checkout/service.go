package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type Service struct {
	tx        TxRunner
	publisher EventPublisher
	cache     CacheInvalidator
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

// New builds the checkout service. publisher and cache may be nil.
func New(tx TxRunner, publisher EventPublisher, cache CacheInvalidator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		tx:        tx,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// CreateOrder validates the request, then allocates stock, redeems the voucher,
// applies the payment gate, stores the order as PENDING and accrues loyalty
// points in one transaction. Any failure leaves no trace in the stores.
func (s *Service) CreateOrder(ctx context.Context, req Request) (*domain.Order, error) {
	in, err := validate(req)
	if err != nil {
		s.logger.Printf("checkout: rejected user_id=%s error=%v", req.UserID, err)
		return nil, err
	}

	var created *domain.Order
	err = s.tx.WithinTx(ctx, func(st Stores) error {
		user, err := s.loadCustomer(ctx, st.Users, in.UserID)
		if err != nil {
			return err
		}

		alloc, err := allocate(ctx, st.Products, in.Items)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		voucher, discount, err := redeemVoucher(ctx, st, voucherInput{
			code:     in.VoucherCode,
			user:     user,
			subtotal: alloc.subtotal,
			products: alloc.products,
			now:      now,
		})
		if err != nil {
			return err
		}

		total := alloc.subtotal.Sub(discount)
		if total.IsNegative() {
			total = decimal.Zero
		}

		method, err := checkPayment(in.PaymentMethod, total)
		if err != nil {
			return err
		}

		order := domain.Order{
			ID:             s.newID(),
			UserID:         user.ID,
			RecipientName:  in.RecipientName,
			Phone:          in.Phone,
			Address:        in.Address,
			PaymentMethod:  method,
			Items:          alloc.items,
			Subtotal:       alloc.subtotal,
			DiscountAmount: discount,
			TotalAmount:    total,
			Status:         domain.StatusPending,
			PointsEarned:   domain.PointsForTotal(total),
			CreatedAt:      now,
		}
		if voucher != nil {
			order.VoucherCode = voucher.Code
		}

		saved, err := st.Orders.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("store order: %w", err)
		}
		if _, err := st.Users.AccruePoints(ctx, user.ID, order.PointsEarned); err != nil {
			return fmt.Errorf("accrue points: %w", err)
		}
		saved.Items = order.Items
		created = saved
		return nil
	})
	if err != nil {
		s.logger.Printf("checkout: failed user_id=%s error=%v", in.UserID, err)
		return nil, err
	}

	s.logger.Printf("checkout: created order id=%s user_id=%s total=%s discount=%s voucher=%s",
		created.ID, created.UserID, created.TotalAmount, created.DiscountAmount, created.VoucherCode)
	s.afterCommit(ctx, *created)
	return created, nil
}

func (s *Service) loadCustomer(ctx context.Context, users UserStore, id string) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.CheckoutError{Kind: domain.ErrUserNotFound, Detail: id}
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, domain.Fail(domain.ErrAccountInactive)
	}
	if user.Role != domain.RoleCustomer {
		return nil, domain.Fail(domain.ErrNotCustomer)
	}
	return user, nil
}

// afterCommit runs side effects that must not undo a committed order.
func (s *Service) afterCommit(ctx context.Context, o domain.Order) {
	if s.cache != nil {
		if err := s.cache.InvalidateUserOrders(ctx, o.UserID); err != nil {
			s.logger.Printf("checkout: invalidate cache user_id=%s error=%v", o.UserID, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.OrderCreated(ctx, o); err != nil {
			s.logger.Printf("checkout: publish order.created id=%s error=%v", o.ID, err)
		}
	}
}
