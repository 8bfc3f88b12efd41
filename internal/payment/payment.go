// Package payment creates hosted checkout sessions and authenticates provider webhooks.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// EventCheckoutCompleted is the only provider event that confirms an order.
const EventCheckoutCompleted = "checkout.session.completed"

const deliveryLineName = "Delivery"

type CheckoutLine struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type CheckoutRequest struct {
	Lines      []CheckoutLine
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type Session struct {
	ID  string
	URL string
}

// Provider is the payment provider's hosted checkout API.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
}

// Event is a verified webhook delivery reduced to what reconciliation reads.
type Event struct {
	ID        string
	Type      string
	SessionID string
	OrderID   string
}

// Verifier authenticates a raw webhook body against its signature header.
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}
