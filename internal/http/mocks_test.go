package http

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/payment"
	"github.com/mikbell/forever/internal/service"
)

type cartCall struct {
	op        string
	accountID string
	itemID    string
	size      string
	quantity  int
	cart      domain.Cart
}

type mockCartService struct {
	m       sync.RWMutex
	preview *service.CartPreview
	err     error
	calls   []cartCall
}

func (s *mockCartService) record(c cartCall) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls = append(s.calls, c)
	return s.err
}

func (s *mockCartService) lastCall() cartCall {
	s.m.RLock()
	defer s.m.RUnlock()
	if len(s.calls) == 0 {
		return cartCall{}
	}
	return s.calls[len(s.calls)-1]
}

func (s *mockCartService) Preview(_ context.Context, accountID string) (*service.CartPreview, error) {
	if err := s.record(cartCall{op: "preview", accountID: accountID}); err != nil {
		return nil, err
	}
	return s.preview, nil
}

func (s *mockCartService) AddItem(_ context.Context, accountID, itemID, size string, delta int) error {
	return s.record(cartCall{op: "add", accountID: accountID, itemID: itemID, size: size, quantity: delta})
}

func (s *mockCartService) SetQuantity(_ context.Context, accountID, itemID, size string, quantity int) error {
	return s.record(cartCall{op: "set", accountID: accountID, itemID: itemID, size: size, quantity: quantity})
}

func (s *mockCartService) RemoveItem(_ context.Context, accountID, itemID, size string) error {
	return s.record(cartCall{op: "remove", accountID: accountID, itemID: itemID, size: size})
}

func (s *mockCartService) ClearCart(_ context.Context, accountID string) error {
	return s.record(cartCall{op: "clear", accountID: accountID})
}

func (s *mockCartService) ReplaceCart(_ context.Context, accountID string, cart domain.Cart) error {
	return s.record(cartCall{op: "replace", accountID: accountID, cart: cart})
}

func (s *mockCartService) MergeCart(_ context.Context, accountID string, cart domain.Cart) error {
	return s.record(cartCall{op: "merge", accountID: accountID, cart: cart})
}

type mockOrderService struct {
	m         sync.RWMutex
	result    *service.PlaceOrderResult
	order     *domain.Order
	orders    []*domain.Order
	session   *payment.Session
	err       error
	placeReq  service.PlaceOrderRequest
	accountID string
	status    domain.OrderStatus
}

func (s *mockOrderService) PlaceOrder(_ context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.placeReq = req
	return s.result, s.err
}

func (s *mockOrderService) CreatePaymentSession(_ context.Context, accountID string, _ uuid.UUID) (*payment.Session, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.accountID = accountID
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func (s *mockOrderService) GetOrder(_ context.Context, accountID string, _ uuid.UUID) (*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.accountID = accountID
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func (s *mockOrderService) ListMine(_ context.Context, accountID string) ([]*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.accountID = accountID
	return s.orders, s.err
}

func (s *mockOrderService) ListAll(context.Context) ([]*domain.Order, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.orders, s.err
}

func (s *mockOrderService) UpdateStatus(_ context.Context, _ uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.status = to
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

type mockReconciler struct {
	m         sync.RWMutex
	payload   []byte
	signature string
	outcome   service.Outcome
	err       error
}

func (r *mockReconciler) HandleEvent(_ context.Context, payload []byte, signature string) (service.Outcome, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.payload = payload
	r.signature = signature
	return r.outcome, r.err
}

type mockProducts struct {
	products []*domain.Product
	err      error
}

func (p mockProducts) ListProducts(context.Context) ([]*domain.Product, error) {
	return p.products, p.err
}
