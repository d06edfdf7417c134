package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"storefront/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type stubPublisher struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
}

func (s *stubPublisher) OrderCreated(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return s.err
}

type stubCache struct {
	mu    sync.Mutex
	users []string
}

func (s *stubCache) InvalidateUserOrders(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, userID)
	return nil
}

func money(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func newFixture() (*memDB, *Service, *stubPublisher, *stubCache) {
	db := newMemDB()
	db.users["u1"] = domain.User{ID: "u1", Role: domain.RoleCustomer, Active: true, MembershipLevel: domain.LevelBronze}
	pub := &stubPublisher{}
	cache := &stubCache{}
	svc := New(db, pub, cache, nil)
	svc.now = func() time.Time { return fixedNow }
	n := 0
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "order-" + string(rune('a'+n-1))
	}
	return db, svc, pub, cache
}

func addProduct(db *memDB, id string, price int64, stock int, categories ...string) {
	db.products[id] = domain.Product{
		ID:            id,
		Name:          "Product " + id,
		SalePrice:     money(price),
		OriginalPrice: money(price),
		StockQuantity: stock,
		Active:        true,
		CategoryIDs:   categories,
	}
}

func addVoucher(db *memDB, v domain.Voucher) {
	if v.ID == "" {
		v.ID = "v-" + v.Code
	}
	if v.StartAt.IsZero() {
		v.StartAt = fixedNow.Add(-24 * time.Hour)
	}
	if v.EndAt.IsZero() {
		v.EndAt = fixedNow.Add(24 * time.Hour)
	}
	if v.Scope == "" {
		v.Scope = domain.ScopeGlobal
	}
	if v.Audience == "" {
		v.Audience = domain.AudienceAll
	}
	v.Active = true
	db.vouchers[v.Code] = v
}

func request(items ...Item) Request {
	return Request{
		UserID:        "u1",
		RecipientName: "Nguyễn Văn An",
		Phone:         "0912345678",
		Address:       "12 Nguyen Hue, District 1, HCMC",
		PaymentMethod: "BANKING",
		Items:         items,
	}
}

func line(id string, qty int, price int64) Item {
	return Item{ProductID: id, Quantity: qty, ClientPrice: money(price)}
}

func expectKind(t *testing.T, err error, kind *domain.ErrorKind) *domain.CheckoutError {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %s, got %v", kind.Code, err)
	}
	ce, ok := domain.AsCheckoutError(err)
	if !ok {
		t.Fatalf("expected a checkout error, got %T", err)
	}
	return ce
}

func TestCreateOrder_SingleItemNoVoucher(t *testing.T) {
	db, svc, pub, cache := newFixture()
	addProduct(db, "p1", 75000, 5)

	order, err := svc.CreateOrder(context.Background(), request(line("p1", 2, 75000)))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if db.stock("p1") != 3 {
		t.Fatalf("expected stock 3, got %d", db.stock("p1"))
	}
	if !order.TotalAmount.Equal(money(150000)) || !order.DiscountAmount.IsZero() {
		t.Fatalf("unexpected totals %s / %s", order.TotalAmount, order.DiscountAmount)
	}
	if order.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if order.PaymentMethod != domain.PaymentBanking || order.VoucherCode != "" {
		t.Fatalf("unexpected order %+v", order)
	}
	if len(order.Items) != 1 || !order.Items[0].PriceAtPurchase.Equal(money(75000)) {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if order.PointsEarned != 15 || db.user("u1").OrderPoints != 15 {
		t.Fatalf("expected 15 points, got order=%d user=%d", order.PointsEarned, db.user("u1").OrderPoints)
	}
	if len(pub.orders) != 1 || len(cache.users) != 1 || cache.users[0] != "u1" {
		t.Fatalf("expected publish and cache invalidation, got %d / %v", len(pub.orders), cache.users)
	}
}

func TestCreateOrder_FixedAmountVoucher(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 50000, 10)
	addVoucher(db, domain.Voucher{
		Code:              "SAVE30",
		DiscountType:      domain.DiscountFixedAmount,
		DiscountValue:     money(30000),
		MinOrderValue:     money(100000),
		UsageLimit:        10,
		UsageLimitPerUser: 1,
	})

	req := request(line("p1", 3, 50000))
	req.VoucherCode = " save30 "
	order, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.DiscountAmount.Equal(money(30000)) || !order.TotalAmount.Equal(money(120000)) {
		t.Fatalf("expected 30000 off to 120000, got %s / %s", order.DiscountAmount, order.TotalAmount)
	}
	if order.VoucherCode != "SAVE30" {
		t.Fatalf("expected normalized code, got %q", order.VoucherCode)
	}
	if db.used("SAVE30") != 1 {
		t.Fatalf("expected usedCount 1, got %d", db.used("SAVE30"))
	}
}

func TestCreateOrder_PercentageVoucher(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 100000, 10)
	addVoucher(db, domain.Voucher{
		Code:          "TEN",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: money(10),
		MinOrderValue: money(1000),
	})

	req := request(line("p1", 2, 100000))
	req.VoucherCode = "TEN"
	order, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.DiscountAmount.Equal(money(20000)) || !order.TotalAmount.Equal(money(180000)) {
		t.Fatalf("expected 20000 off to 180000, got %s / %s", order.DiscountAmount, order.TotalAmount)
	}
}

func TestCreateOrder_CodLimitLeavesNoTrace(t *testing.T) {
	db, svc, pub, _ := newFixture()
	addProduct(db, "p1", 10500000, 5)
	addVoucher(db, domain.Voucher{Code: "ZERO", DiscountType: domain.DiscountShipping, MinOrderValue: money(1000)})

	req := request(line("p1", 2, 10500000))
	req.PaymentMethod = "cod"
	req.VoucherCode = "ZERO"
	_, err := svc.CreateOrder(context.Background(), req)
	expectKind(t, err, domain.ErrCodLimitExceeded)

	if db.stock("p1") != 5 || db.used("ZERO") != 0 || db.orderCount() != 0 {
		t.Fatalf("expected no mutation, got stock=%d used=%d orders=%d", db.stock("p1"), db.used("ZERO"), db.orderCount())
	}
	if db.user("u1").OrderPoints != 0 || len(pub.orders) != 0 {
		t.Fatalf("expected no points and no event")
	}
}

func TestCreateOrder_CodAtLimitIsAccepted(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000000, 5)

	req := request(line("p1", 2, 10000000))
	req.PaymentMethod = "COD"
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("expected total of exactly 20,000,000 to pass, got %v", err)
	}
}

func TestCreateOrder_DiscountAppliedBeforeCodGate(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10500000, 5)
	addVoucher(db, domain.Voucher{Code: "BIG", DiscountType: domain.DiscountFixedAmount, DiscountValue: money(1000000), MinOrderValue: money(1000000)})

	req := request(line("p1", 2, 10500000))
	req.PaymentMethod = "COD"
	req.VoucherCode = "BIG"
	order, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("expected discounted total to pass the COD gate, got %v", err)
	}
	if !order.TotalAmount.Equal(money(20000000)) {
		t.Fatalf("expected 20,000,000, got %s", order.TotalAmount)
	}
}

func TestCreateOrder_LastUnitRace(t *testing.T) {
	db, svc, _, _ := newFixture()
	db.users["u2"] = domain.User{ID: "u2", Role: domain.RoleCustomer, Active: true}
	addProduct(db, "p1", 50000, 1)

	// Both checkouts read stock before either decrements.
	var arrived sync.WaitGroup
	arrived.Add(2)
	db.afterRead = func() {
		arrived.Done()
		arrived.Wait()
	}

	errs := make([]error, 2)
	var g errgroup.Group
	for i, user := range []string{"u1", "u2"} {
		i, user := i, user
		g.Go(func() error {
			req := request(line("p1", 1, 50000))
			req.UserID = user
			_, errs[i] = svc.CreateOrder(context.Background(), req)
			return nil
		})
	}
	_ = g.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("expected one success and one InsufficientStock, got %d and %d", succeeded, insufficient)
	}
	if db.stock("p1") != 0 || db.orderCount() != 1 {
		t.Fatalf("expected stock 0 and one order, got %d / %d", db.stock("p1"), db.orderCount())
	}
}

func TestCreateOrder_CategoryScopeMismatchRollsBack(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 60000, 4, "9")
	addProduct(db, "p2", 40000, 4, "9")
	addVoucher(db, domain.Voucher{
		Code:          "CAT5",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: money(10),
		MinOrderValue: money(1000),
		Scope:         domain.ScopeCategory,
		ScopeIDs:      []string{"5"},
	})

	req := request(line("p1", 1, 60000), line("p2", 2, 40000))
	req.VoucherCode = "CAT5"
	_, err := svc.CreateOrder(context.Background(), req)
	expectKind(t, err, domain.ErrScopeMismatch)

	if db.stock("p1") != 4 || db.stock("p2") != 4 {
		t.Fatalf("expected stock restored, got %d / %d", db.stock("p1"), db.stock("p2"))
	}
	if db.used("CAT5") != 0 || db.orderCount() != 0 || db.rolledBack != 1 {
		t.Fatalf("expected no usage and no order, got used=%d orders=%d", db.used("CAT5"), db.orderCount())
	}
}

func TestCreateOrder_FailureAtLaterLineRestoresEarlierLines(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 5)
	addProduct(db, "p2", 20000, 5)
	addProduct(db, "p3", 30000, 5)

	_, err := svc.CreateOrder(context.Background(), request(line("p1", 1, 10000), line("p2", 2, 20000), line("p3", 1, 29000)))
	ce := expectKind(t, err, domain.ErrPriceMismatch)
	if ce.ProductID != "p3" {
		t.Fatalf("expected p3 to fail, got %s", ce.ProductID)
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if db.stock(id) != 5 {
			t.Fatalf("expected %s stock 5, got %d", id, db.stock(id))
		}
	}
	if db.orderCount() != 0 {
		t.Fatalf("expected no order")
	}
}

func TestCreateOrder_InventoryFailures(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 0)
	addProduct(db, "p2", 10000, 2)
	addProduct(db, "p3", 10000, 9)
	p3 := db.products["p3"]
	p3.Active = false
	db.products["p3"] = p3

	_, err := svc.CreateOrder(context.Background(), request(line("missing", 1, 10000)))
	expectKind(t, err, domain.ErrProductNotFound)

	_, err = svc.CreateOrder(context.Background(), request(line("p3", 1, 10000)))
	expectKind(t, err, domain.ErrProductDiscontinued)

	_, err = svc.CreateOrder(context.Background(), request(line("p1", 1, 10000)))
	expectKind(t, err, domain.ErrOutOfStock)

	_, err = svc.CreateOrder(context.Background(), request(line("p2", 3, 10000)))
	ce := expectKind(t, err, domain.ErrInsufficientStock)
	if ce.Available != 2 || ce.ProductID != "p2" {
		t.Fatalf("expected available 2 for p2, got %+v", ce)
	}

	// The first invalid line in cart order is reported.
	_, err = svc.CreateOrder(context.Background(), request(line("p2", 1, 10000), line("p1", 1, 10000), line("missing", 1, 10000)))
	expectKind(t, err, domain.ErrOutOfStock)
	if db.stock("p2") != 2 {
		t.Fatalf("expected p2 stock restored, got %d", db.stock("p2"))
	}
}

func TestCreateOrder_AccountChecks(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 5)
	db.users["inactive"] = domain.User{ID: "inactive", Role: domain.RoleCustomer}
	db.users["admin"] = domain.User{ID: "admin", Role: domain.RoleAdmin, Active: true}

	for user, kind := range map[string]*domain.ErrorKind{
		"ghost":    domain.ErrUserNotFound,
		"inactive": domain.ErrAccountInactive,
		"admin":    domain.ErrNotCustomer,
	} {
		req := request(line("p1", 1, 10000))
		req.UserID = user
		_, err := svc.CreateOrder(context.Background(), req)
		ce := expectKind(t, err, kind)
		if ce.Kind.Category != domain.CategoryAccount {
			t.Fatalf("expected account category for %s, got %s", user, ce.Kind.Category)
		}
	}
	if db.stock("p1") != 5 {
		t.Fatalf("expected untouched stock")
	}
}

func TestCreateOrder_MissingPaymentMethodRollsBack(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 5)

	req := request(line("p1", 2, 10000))
	req.PaymentMethod = "  "
	_, err := svc.CreateOrder(context.Background(), req)
	ce := expectKind(t, err, domain.ErrMissingPaymentMethod)
	if ce.Kind.Category != domain.CategoryPayment {
		t.Fatalf("expected payment category, got %s", ce.Kind.Category)
	}
	if db.stock("p1") != 5 {
		t.Fatalf("expected stock restored, got %d", db.stock("p1"))
	}
}

func TestCreateOrder_ValidationNeverOpensTransaction(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 5)

	req := request(line("p1", 1, 10000))
	req.Phone = "12345"
	_, err := svc.CreateOrder(context.Background(), req)
	expectKind(t, err, domain.ErrInvalidPhone)
	if db.rolledBack != 0 {
		t.Fatalf("validation failures must not reach the stores")
	}
}

func TestCreateOrder_DiscountNeverPushesTotalBelowZero(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 50000, 5)
	addVoucher(db, domain.Voucher{Code: "HUGE", DiscountType: domain.DiscountFixedAmount, DiscountValue: money(80000), MinOrderValue: money(1000)})

	req := request(line("p1", 1, 50000))
	req.VoucherCode = "HUGE"
	order, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.TotalAmount.IsZero() {
		t.Fatalf("expected total floored at 0, got %s", order.TotalAmount)
	}
	if order.TotalAmount.GreaterThan(order.Subtotal) {
		t.Fatalf("total must not exceed subtotal")
	}
	if order.PointsEarned != 0 {
		t.Fatalf("expected no points on a free order, got %d", order.PointsEarned)
	}
}

func TestCreateOrder_PriceSnapshotSurvivesPriceChange(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 50000, 5)

	order, err := svc.CreateOrder(context.Background(), request(line("p1", 2, 50000)))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	p := db.products["p1"]
	p.SalePrice = money(99000)
	db.products["p1"] = p

	stored := db.orders[0]
	if !stored.Items[0].PriceAtPurchase.Equal(money(50000)) || !stored.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("stored order changed with catalog price: %+v", stored)
	}

	// A stale client price is now rejected.
	_, err = svc.CreateOrder(context.Background(), request(line("p1", 1, 50000)))
	expectKind(t, err, domain.ErrPriceMismatch)
}

func TestCreateOrder_PublishFailureDoesNotFailCheckout(t *testing.T) {
	db, svc, pub, _ := newFixture()
	addProduct(db, "p1", 10000, 5)
	pub.err = errors.New("broker down")

	if _, err := svc.CreateOrder(context.Background(), request(line("p1", 1, 10000))); err != nil {
		t.Fatalf("expected committed order despite publish failure, got %v", err)
	}
	if db.orderCount() != 1 {
		t.Fatalf("expected order to stay committed")
	}
}

func TestCreateOrder_OrderStoreFailureRollsBack(t *testing.T) {
	db, svc, pub, _ := newFixture()
	addProduct(db, "p1", 10000, 5)
	addVoucher(db, domain.Voucher{Code: "TEN", DiscountType: domain.DiscountPercentage, DiscountValue: money(10), MinOrderValue: money(1000)})
	db.createErr = errors.New("disk full")

	req := request(line("p1", 1, 10000))
	req.VoucherCode = "TEN"
	if _, err := svc.CreateOrder(context.Background(), req); err == nil {
		t.Fatalf("expected error")
	}
	if db.stock("p1") != 5 || db.used("TEN") != 0 || len(pub.orders) != 0 {
		t.Fatalf("expected full rollback, got stock=%d used=%d events=%d", db.stock("p1"), db.used("TEN"), len(pub.orders))
	}
}

func TestCreateOrder_LoyaltyPromotesMember(t *testing.T) {
	db, svc, _, _ := newFixture()
	u := db.users["u1"]
	u.OrderPoints = 990
	db.users["u1"] = u
	addProduct(db, "p1", 100000, 5)

	if _, err := svc.CreateOrder(context.Background(), request(line("p1", 1, 100000))); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	got := db.user("u1")
	if got.OrderPoints != 1000 || got.MembershipLevel != domain.LevelSilver {
		t.Fatalf("expected 1000 points at SILVER, got %d %s", got.OrderPoints, got.MembershipLevel)
	}
}

func TestCreateOrder_StockConservationUnderContention(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 10)

	var g errgroup.Group
	g.SetLimit(8)
	quantities := []int{1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3}
	committed := make([]int, len(quantities))
	for i, qty := range quantities {
		i, qty := i, qty
		g.Go(func() error {
			if _, err := svc.CreateOrder(context.Background(), request(line("p1", qty, 10000))); err == nil {
				committed[i] = qty
			} else if !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrOutOfStock) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	sum := 0
	for _, q := range committed {
		sum += q
	}
	if got := db.stock("p1"); got != 10-sum || got < 0 {
		t.Fatalf("expected stock %d, got %d", 10-sum, got)
	}
}

func TestCreateOrder_VoucherCapUnderContention(t *testing.T) {
	db, svc, _, _ := newFixture()
	addProduct(db, "p1", 10000, 100)
	addVoucher(db, domain.Voucher{
		Code:          "FIRST3",
		DiscountType:  domain.DiscountFixedAmount,
		DiscountValue: money(1000),
		MinOrderValue: money(1000),
		UsageLimit:    3,
	})

	var g errgroup.Group
	results := make([]error, 10)
	for i := range results {
		i := i
		g.Go(func() error {
			req := request(line("p1", 1, 10000))
			req.VoucherCode = "FIRST3"
			_, results[i] = svc.CreateOrder(context.Background(), req)
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else if !errors.Is(err, domain.ErrVoucherExhausted) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 3 || db.used("FIRST3") != 3 {
		t.Fatalf("expected 3 redemptions, got ok=%d used=%d", ok, db.used("FIRST3"))
	}
	if db.stock("p1") != 97 {
		t.Fatalf("expected stock 97, got %d", db.stock("p1"))
	}
}
