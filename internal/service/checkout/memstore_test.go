package checkout

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/domain"
)

// memDB is an in-memory TxRunner. Each store call is atomic; a failed
// transaction replays its undo log so nothing it wrote survives.
type memDB struct {
	mu       sync.Mutex
	users    map[string]domain.User
	products map[string]domain.Product
	vouchers map[string]domain.Voucher
	orders   []domain.Order

	afterRead  func()
	createErr  error
	rolledBack int
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[string]domain.User{},
		products: map[string]domain.Product{},
		vouchers: map[string]domain.Voucher{},
	}
}

type memTx struct {
	db   *memDB
	undo []func()
}

func (m *memDB) WithinTx(ctx context.Context, fn func(Stores) error) error {
	tx := &memTx{db: m}
	err := fn(Stores{Users: tx, Products: tx, Vouchers: tx, Orders: tx})
	if err != nil {
		m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.rolledBack++
		m.mu.Unlock()
	}
	return err
}

func (t *memTx) GetByID(_ context.Context, id string) (*domain.User, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	u, ok := t.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) AccruePoints(_ context.Context, id string, points int64) (*domain.User, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	u, ok := t.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.OrderPoints += points
	u.MembershipLevel = domain.LevelForPoints(u.OrderPoints)
	t.db.users[id] = u
	t.undo = append(t.undo, func() {
		cur := t.db.users[id]
		cur.OrderPoints -= points
		cur.MembershipLevel = domain.LevelForPoints(cur.OrderPoints)
		t.db.users[id] = cur
	})
	return &u, nil
}

func (t *memTx) ListByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	t.db.mu.Lock()
	var out []domain.Product
	for _, id := range ids {
		if p, ok := t.db.products[id]; ok {
			out = append(out, p)
		}
	}
	hook := t.db.afterRead
	t.db.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (t *memTx) LockByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.db.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(_ context.Context, id string, qty int) (int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	p, ok := t.db.products[id]
	if !ok || p.StockQuantity < qty {
		return 0, domain.ErrInsufficientStock
	}
	p.StockQuantity -= qty
	t.db.products[id] = p
	t.undo = append(t.undo, func() {
		cur := t.db.products[id]
		cur.StockQuantity += qty
		t.db.products[id] = cur
	})
	return p.StockQuantity, nil
}

func (t *memTx) GetByCodeForUpdate(_ context.Context, code string) (*domain.Voucher, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	v, ok := t.db.vouchers[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (t *memTx) IncrementUsage(_ context.Context, id string) (int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for code, v := range t.db.vouchers {
		if v.ID != id {
			continue
		}
		if v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit {
			return 0, domain.ErrVoucherExhausted
		}
		v.UsedCount++
		t.db.vouchers[code] = v
		t.undo = append(t.undo, func() {
			cur := t.db.vouchers[code]
			cur.UsedCount--
			t.db.vouchers[code] = cur
		})
		return v.UsedCount, nil
	}
	return 0, domain.ErrNotFound
}

func (t *memTx) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if t.db.createErr != nil {
		return nil, t.db.createErr
	}
	t.db.orders = append(t.db.orders, o)
	t.undo = append(t.undo, func() {
		for i := range t.db.orders {
			if t.db.orders[i].ID == o.ID {
				t.db.orders = append(t.db.orders[:i], t.db.orders[i+1:]...)
				return
			}
		}
	})
	return &o, nil
}

func (t *memTx) CountByUserAndVoucher(_ context.Context, userID, code string) (int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	n := 0
	for _, o := range t.db.orders {
		if o.UserID == userID && o.VoucherCode == code {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountByUser(_ context.Context, userID string) (int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	n := 0
	for _, o := range t.db.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memDB) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].StockQuantity
}

func (m *memDB) used(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vouchers[code].UsedCount
}

func (m *memDB) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memDB) user(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}
