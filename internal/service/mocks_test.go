package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/cache"
	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/payment"
	"github.com/mikbell/forever/internal/repository"
	"github.com/shopspring/decimal"
)

type mockCartRepository struct {
	m         sync.RWMutex
	carts     map[string]domain.Cart
	updatedAt map[string]time.Time
	now       func() time.Time
	err       error
	clearErr  error
	clears    int
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{
		carts:     make(map[string]domain.Cart),
		updatedAt: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (m *mockCartRepository) GetCart(_ context.Context, accountID string) (domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[accountID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cart.Normalize(), nil
}

func (m *mockCartRepository) mutate(accountID string, fn func(domain.Cart)) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	cart, ok := m.carts[accountID]
	if !ok {
		cart = domain.Cart{}
	}
	fn(cart)
	m.carts[accountID] = cart.Normalize()
	m.updatedAt[accountID] = m.now()
	return nil
}

func (m *mockCartRepository) AddItem(_ context.Context, accountID, itemID, size string, delta int) error {
	return m.mutate(accountID, func(c domain.Cart) {
		if c[itemID] == nil {
			c[itemID] = make(map[string]int)
		}
		c[itemID][size] += delta
	})
}

func (m *mockCartRepository) SetQuantity(_ context.Context, accountID, itemID, size string, quantity int) error {
	return m.mutate(accountID, func(c domain.Cart) {
		if c[itemID] == nil {
			c[itemID] = make(map[string]int)
		}
		c[itemID][size] = quantity
	})
}

func (m *mockCartRepository) RemoveItem(_ context.Context, accountID, itemID, size string) error {
	return m.mutate(accountID, func(c domain.Cart) {
		delete(c[itemID], size)
	})
}

func (m *mockCartRepository) ClearCart(_ context.Context, accountID string) error {
	m.m.Lock()
	if m.clearErr != nil {
		m.m.Unlock()
		return m.clearErr
	}
	m.clears++
	m.m.Unlock()
	return m.mutate(accountID, func(c domain.Cart) {
		for k := range c {
			delete(c, k)
		}
	})
}

func (m *mockCartRepository) ClearCartIfUnchangedSince(_ context.Context, accountID string, since time.Time) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	at, ok := m.updatedAt[accountID]
	if !ok || at.After(since) {
		return false, nil
	}
	m.carts[accountID] = domain.Cart{}
	m.updatedAt[accountID] = m.now()
	m.clears++
	return true, nil
}

func (m *mockCartRepository) ReplaceCart(_ context.Context, accountID string, cart domain.Cart) error {
	return m.mutate(accountID, func(c domain.Cart) {
		for k := range c {
			delete(c, k)
		}
		for item, sizes := range cart {
			c[item] = make(map[string]int)
			for size, q := range sizes {
				c[item][size] = q
			}
		}
	})
}

func (m *mockCartRepository) MergeCart(_ context.Context, accountID string, cart domain.Cart) error {
	return m.mutate(accountID, func(c domain.Cart) {
		for _, line := range cart.Lines() {
			if c[line.ItemID] == nil {
				c[line.ItemID] = make(map[string]int)
			}
			c[line.ItemID][line.Size] += line.Quantity
		}
	})
}

func (m *mockCartRepository) clearCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.clears
}

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]domain.Cart
	err     error
	gets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, accountID string) (domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[accountID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, accountID string, cart domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[accountID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, accountID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.carts, accountID)
	return m.err
}

func (m *mockCache) cached(accountID string) (domain.Cart, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	c, ok := m.carts[accountID]
	return c, ok
}

type mockCatalog struct {
	m        sync.RWMutex
	products map[string]*domain.Product
	err      error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: make(map[string]*domain.Product)}
}

func (m *mockCatalog) setPrice(id, price string) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[id] = &domain.Product{ID: id, Name: id, Price: decimal.RequireFromString(price)}
}

func (m *mockCatalog) remove(id string) {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.products, id)
}

func (m *mockCatalog) Lookup(_ context.Context, id string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

type mockOrderRepository struct {
	m         sync.RWMutex
	orders    map[uuid.UUID]domain.Order
	outbox    []*repository.OutboxEvent
	err       error
	createErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]domain.Order)}
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order, event *repository.OutboxEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	stored := *order
	stored.Items = append([]domain.LineItem(nil), order.Items...)
	m.orders[order.ID] = stored
	if event != nil {
		event.ID = int64(len(m.outbox) + 1)
		m.outbox = append(m.outbox, event)
	}
	return nil
}

func (m *mockOrderRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (m *mockOrderRepository) ListOrdersByAccount(_ context.Context, accountID string) ([]*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.AccountID == accountID {
			out = append(out, &o)
		}
	}
	return out, m.err
}

func (m *mockOrderRepository) ListOrders(context.Context) ([]*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, &o)
	}
	return out, m.err
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	m.orders[id] = o
	return nil
}

func (m *mockOrderRepository) ConfirmPayment(_ context.Context, id uuid.UUID, createdAfter, at time.Time, event *repository.OutboxEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderStatusAwaitingPayment || !o.CreatedAt.After(createdAfter) {
		return repository.ErrStatusConflict
	}
	o.Status = domain.OrderStatusProcessing
	o.PaymentConfirmed = true
	o.UpdatedAt = at
	m.orders[id] = o
	if event != nil {
		event.ID = int64(len(m.outbox) + 1)
		m.outbox = append(m.outbox, event)
	}
	return nil
}

func (m *mockOrderRepository) DeleteExpired(_ context.Context, createdBefore time.Time) ([]uuid.UUID, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var ids []uuid.UUID
	for id, o := range m.orders {
		if o.Status == domain.OrderStatusAwaitingPayment && !o.CreatedAt.After(createdBefore) {
			delete(m.orders, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockOrderRepository) events() []*repository.OutboxEvent {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]*repository.OutboxEvent(nil), m.outbox...)
}

func (m *mockOrderRepository) count() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.orders)
}

type mockSessions struct {
	m      sync.RWMutex
	orders []uuid.UUID
	err    error
}

func (m *mockSessions) CreateSession(_ context.Context, order *domain.Order) (*payment.Session, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.orders = append(m.orders, order.ID)
	if m.err != nil {
		return nil, m.err
	}
	id := fmt.Sprintf("cs_%d", len(m.orders))
	return &payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (m *mockSessions) calls() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.orders)
}

// mockVerifier accepts any payload whose signature equals "valid" and decodes nothing:
// the event is whatever the test queued.
type mockVerifier struct {
	m     sync.Mutex
	event *payment.Event
	calls int
}

func (m *mockVerifier) Verify(_ []byte, signature string) (*payment.Event, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if signature != "valid" {
		return nil, fmt.Errorf("%w: bad signature", domain.ErrSignatureInvalid)
	}
	return m.event, nil
}

type fixedClock struct {
	m   sync.RWMutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.m.Lock()
	defer c.m.Unlock()
	c.now = t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.m.Lock()
	defer c.m.Unlock()
	c.now = c.now.Add(d)
}
