package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikbell/forever/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BridgeConfig struct {
	FrontendURL string
	Timeout     time.Duration
}

// Bridge turns an order into a hosted checkout session. It never touches order state.
type Bridge struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[*Session]
	cfg      BridgeConfig
	logger   *zap.Logger
}

func NewBridge(provider Provider, cfg BridgeConfig, logger *zap.Logger) *Bridge {
	cb := gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Bridge{
		provider: provider,
		cb:       cb,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateSession opens a new provider session for order. Each call creates a fresh session.
func (b *Bridge) CreateSession(ctx context.Context, order *domain.Order) (*Session, error) {
	req := b.checkoutRequest(order)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	session, err := b.cb.Execute(func() (*Session, error) {
		return b.provider.CreateCheckoutSession(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: provider unavailable: %v", domain.ErrPaymentProvider, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s", domain.ErrPaymentProvider, b.cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentProvider, err)
	}

	b.logger.Info("checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", session.ID))
	return session, nil
}

func (b *Bridge) checkoutRequest(order *domain.Order) CheckoutRequest {
	lines := make([]CheckoutLine, 0, len(order.Items)+1)
	for _, item := range order.Items {
		lines = append(lines, CheckoutLine{
			Name:      fmt.Sprintf("%s (%s)", item.Name, item.Size),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	lines = append(lines, CheckoutLine{
		Name:      deliveryLineName,
		UnitPrice: order.DeliveryCharge,
		Quantity:  1,
	})

	return CheckoutRequest{
		Lines:      lines,
		Currency:   order.Currency,
		SuccessURL: b.cfg.FrontendURL + "/orders?success=true",
		CancelURL:  b.cfg.FrontendURL + "/cart?canceled=true",
		Metadata:   map[string]string{orderIDMetadataKey: order.ID.String()},
	}
}
