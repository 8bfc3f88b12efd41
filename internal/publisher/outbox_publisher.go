package publisher

import (
	"context"
	"time"

	"github.com/mikbell/forever/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPublisher ships committed outbox events to Kafka, oldest first, and marks them
// processed. Delivery is at least once: an event published but not marked is sent again.
type OutboxPublisher struct {
	repo      repository.OutboxRepository
	writer    MessageWriter
	tick      time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewOutboxPublisher(repo repository.OutboxRepository, logger *zap.Logger, topic string, brokers ...string) *OutboxPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &OutboxPublisher{
		repo:      repo,
		writer:    w,
		tick:      time.Second,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

func (p *OutboxPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPublisher) Close() error {
	return p.writer.Close()
}

// publishPending stops at the first failed event so later events of the same order
// are never published ahead of it.
func (p *OutboxPublisher) publishPending(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.String("aggregate_id", event.AggregateID),
				zap.Error(err))
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Warn("failed to mark outbox event as processed",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
			return published
		}
		published++
	}
	return published
}

func (p *OutboxPublisher) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}
