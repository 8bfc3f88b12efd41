package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mikbell/forever/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxAttempts = 5

// CartClearer clears a cart unless it changed after since.
type CartClearer interface {
	ClearCartIfUnchangedSince(ctx context.Context, accountID string, since time.Time) (bool, error)
}

// MessageReader is the subset of *kafka.Reader the poller uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Poller consumes order events and retries the cart clear that normally happens inline
// when an order enters fulfillment.
type Poller struct {
	carts   CartClearer
	reader  MessageReader
	backoff time.Duration
	logger  *zap.Logger
}

func NewPoller(carts CartClearer, logger *zap.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "cart-clear-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, backoff: 500 * time.Millisecond, logger: logger}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consumeOne(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) consumeOne(ctx context.Context) {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("error reading message", zap.Error(err))
		}
		return
	}

	p.handle(ctx, m)

	if err := p.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		p.logger.Warn("error committing message", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	var event domain.OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Error("error parsing message", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if event.Type != domain.EventOrderAccepted && event.Type != domain.EventOrderPaid {
		return
	}
	if event.AccountID == "" {
		p.logger.Error("order event without account", zap.String("order_id", event.OrderID))
		return
	}

	log := p.logger.With(
		zap.String("order_id", event.OrderID),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", event.Type))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cleared, err := p.carts.ClearCartIfUnchangedSince(ctx, event.AccountID, event.OccurredAt)
		if err == nil {
			if cleared {
				log.Info("cart cleared from order event")
			}
			return
		}

		log.Warn("cart clear from order event failed", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(p.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return
		}
	}
	log.Error("giving up on cart clear, cart needs manual cleanup")
}
