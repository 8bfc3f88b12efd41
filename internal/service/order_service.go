package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/logger"
	"github.com/mikbell/forever/internal/payment"
	"github.com/mikbell/forever/internal/pricing"
	"github.com/mikbell/forever/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Carts is the part of the cart service the order flow depends on.
type Carts interface {
	// ReadCart returns the stored cart, never a cached copy.
	ReadCart(ctx context.Context, accountID string) (domain.Cart, error)
	ClearCart(ctx context.Context, accountID string) error
}

// SessionCreator opens hosted checkout sessions for online orders.
type SessionCreator interface {
	CreateSession(ctx context.Context, order *domain.Order) (*payment.Session, error)
}

type OrderConfig struct {
	DeliveryCharge  decimal.Decimal
	Currency        string
	PaymentDeadline time.Duration
}

type OrderService struct {
	carts    Carts
	catalog  pricing.Catalog
	orders   repository.OrderRepository
	sessions SessionCreator
	cfg      OrderConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewOrderService(carts Carts, catalog pricing.Catalog, orders repository.OrderRepository,
	sessions SessionCreator, cfg OrderConfig, logger *zap.Logger) *OrderService {
	return &OrderService{
		carts:    carts,
		catalog:  catalog,
		orders:   orders,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

type PlaceOrderRequest struct {
	AccountID     string
	Address       domain.Address
	PaymentMethod domain.PaymentMethod
}

type PlaceOrderResult struct {
	Order       *domain.Order
	RedirectURL string
	// Dropped lines were in the cart but are no longer sold.
	Dropped []domain.CartLine
}

// PlaceOrder snapshots the priced cart into a new order.
//
// Cash on delivery orders are accepted immediately and the cart is cleared. Online orders
// keep the cart until payment is confirmed and get a checkout session instead. When the
// session cannot be created the persisted order is still returned alongside an error
// wrapping domain.ErrPaymentProvider, so the caller can retry with its id.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if strings.TrimSpace(req.AccountID) == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, req.PaymentMethod)
	}
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.carts.ReadCart(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	priced, err := pricing.Price(ctx, cart, s.catalog)
	if err != nil {
		return nil, err
	}
	if len(priced.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	now := s.now()
	order, err := domain.NewOrder(req.AccountID, priced.Lines, s.cfg.DeliveryCharge, s.cfg.Currency,
		req.Address, req.PaymentMethod, now)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.logger).With(
		zap.String("order_id", order.ID.String()),
		zap.String("account_id", order.AccountID))
	if len(priced.Dropped) > 0 {
		log.Info("unavailable cart lines left out of order", zap.Int("dropped", len(priced.Dropped)))
	}

	result := &PlaceOrderResult{Order: order, Dropped: priced.Dropped}

	if order.PaymentMethod == domain.PaymentCashOnDelivery {
		if err := order.Accept(now); err != nil {
			return nil, err
		}
		event, err := newOutboxEvent(domain.EventOrderAccepted, order, now)
		if err != nil {
			return nil, err
		}
		if err := s.orders.CreateOrder(ctx, order, event); err != nil {
			return nil, err
		}
		log.Info("cash on delivery order accepted", zap.String("total", order.TotalAmount.StringFixed(2)))
		s.clearCartAfterCommit(ctx, log, order.AccountID)
		return result, nil
	}

	if err := s.orders.CreateOrder(ctx, order, nil); err != nil {
		return nil, err
	}
	log.Info("online order awaiting payment", zap.String("total", order.TotalAmount.StringFixed(2)))

	session, err := s.sessions.CreateSession(ctx, order)
	if err != nil {
		log.Warn("checkout session creation failed", zap.Error(err))
		return result, err
	}
	result.RedirectURL = session.URL
	return result, nil
}

// CreatePaymentSession opens a fresh checkout session for an unpaid online order of accountID.
func (s *OrderService) CreatePaymentSession(ctx context.Context, accountID string, orderID uuid.UUID) (*payment.Session, error) {
	order, err := s.GetOrder(ctx, accountID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != domain.PaymentOnline {
		return nil, fmt.Errorf("%w: order %s is not paid online", domain.ErrInvalidTransition, order.ID)
	}
	if order.Status != domain.OrderStatusAwaitingPayment {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidTransition, order.ID, order.Status)
	}
	return s.sessions.CreateSession(ctx, order)
}

// GetOrder returns an order owned by accountID. Orders of other accounts and unpaid
// orders past the payment deadline are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, accountID string, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AccountID != accountID || order.IsExpired(s.now(), s.cfg.PaymentDeadline) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, accountID string) ([]*domain.Order, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrInvalidInput)
	}
	orders, err := s.orders.ListOrdersByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.withoutExpired(orders), nil
}

func (s *OrderService) ListAll(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return s.withoutExpired(orders), nil
}

// UpdateStatus applies an operator fulfillment update.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, to)
	}
	if !domain.IsOperatorTarget(to) {
		return nil, fmt.Errorf("%w: operators cannot set %s", domain.ErrInvalidTransition, to)
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if order.IsExpired(now, s.cfg.PaymentDeadline) {
		return nil, repository.ErrOrderNotFound
	}

	from := order.Status
	if err := order.Transition(to, now); err != nil {
		return nil, err
	}

	err = s.orders.UpdateStatus(ctx, order.ID, from, to, now)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: order %s changed concurrently", domain.ErrInvalidTransition, order.ID)
	}
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.logger).Info("order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	return order, nil
}

func (s *OrderService) withoutExpired(orders []*domain.Order) []*domain.Order {
	now := s.now()
	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if !o.IsExpired(now, s.cfg.PaymentDeadline) {
			out = append(out, o)
		}
	}
	return out
}

// clearCartAfterCommit never fails the caller: the order is already committed and the
// outbox event drives a retry of the clear.
func (s *OrderService) clearCartAfterCommit(ctx context.Context, log *zap.Logger, accountID string) {
	if err := s.carts.ClearCart(context.WithoutCancel(ctx), accountID); err != nil {
		log.Error("cart clear after order commit failed, left to event retry", zap.Error(err))
	}
}

func newOutboxEvent(eventType string, order *domain.Order, at time.Time) (*repository.OutboxEvent, error) {
	payload, err := json.Marshal(domain.NewOrderEvent(eventType, order, at))
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &repository.OutboxEvent{
		AggregateID: order.ID.String(),
		EventType:   eventType,
		Payload:     payload,
	}, nil
}
