package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikbell/forever/internal/domain"
)

var (
	ErrCartNotFound   = fmt.Errorf("cart %w", domain.ErrNotFound)
	ErrOrderNotFound  = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// CartRepository is the authoritative cart store. Every method is a single atomic update.
type CartRepository interface {
	GetCart(ctx context.Context, accountID string) (domain.Cart, error)
	AddItem(ctx context.Context, accountID, itemID, size string, delta int) error
	SetQuantity(ctx context.Context, accountID, itemID, size string, quantity int) error
	RemoveItem(ctx context.Context, accountID, itemID, size string) error
	ClearCart(ctx context.Context, accountID string) error
	ClearCartIfUnchangedSince(ctx context.Context, accountID string, since time.Time) (bool, error)
	ReplaceCart(ctx context.Context, accountID string, cart domain.Cart) error
	MergeCart(ctx context.Context, accountID string, cart domain.Cart) error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is written in the same transaction as the order mutation it describes.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order, event *OutboxEvent) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByAccount(ctx context.Context, accountID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateStatus applies from -> to only if the stored status is still from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error
	// ConfirmPayment moves an unpaid order created after createdAfter to PROCESSING.
	ConfirmPayment(ctx context.Context, id uuid.UUID, createdAfter, at time.Time, event *OutboxEvent) error
	DeleteExpired(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
