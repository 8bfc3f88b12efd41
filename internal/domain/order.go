package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentOnline         PaymentMethod = "online"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentCashOnDelivery || m == PaymentOnline
}

// Address is opaque to the order lifecycle, only completeness is checked.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a Address) Validate() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postalCode")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: address is missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// LineItem is a priced cart line. Inside an Order it is a snapshot taken at placement time.
type LineItem struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID               uuid.UUID
	AccountID        string
	Items            []LineItem
	DeliveryCharge   decimal.Decimal
	TotalAmount      decimal.Decimal
	Currency         string
	Address          Address
	PaymentMethod    PaymentMethod
	Status           OrderStatus
	PaymentConfirmed bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder builds an order in the initial AwaitingPayment state. The total is computed
// here once and never recomputed.
func NewOrder(accountID string, items []LineItem, deliveryCharge decimal.Decimal, currency string,
	address Address, method PaymentMethod, now time.Time) (*Order, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidInput)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, method)
	}

	snapshot := make([]LineItem, len(items))
	copy(snapshot, items)

	total := deliveryCharge
	for _, item := range snapshot {
		total = total.Add(item.Amount())
	}

	return &Order{
		ID:             uuid.New(),
		AccountID:      accountID,
		Items:          snapshot,
		DeliveryCharge: deliveryCharge,
		TotalAmount:    total,
		Currency:       currency,
		Address:        address,
		PaymentMethod:  method,
		Status:         OrderStatusAwaitingPayment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Transition moves the order to the next status or fails with ErrInvalidTransition.
func (o *Order) Transition(to OrderStatus, now time.Time) error {
	if !CanTransitionTo(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// Accept marks a cash-on-delivery order as accepted for fulfillment.
func (o *Order) Accept(now time.Time) error {
	if o.PaymentMethod != PaymentCashOnDelivery {
		return fmt.Errorf("%w: only cash on delivery orders are accepted without payment", ErrInvalidTransition)
	}
	return o.Transition(OrderStatusProcessing, now)
}

// ConfirmPayment records a provider confirmation for an online order.
func (o *Order) ConfirmPayment(now time.Time) error {
	if err := o.Transition(OrderStatusProcessing, now); err != nil {
		return err
	}
	o.PaymentConfirmed = true
	return nil
}

// IsExpired reports whether an unpaid order has outlived the payment deadline.
func (o *Order) IsExpired(now time.Time, deadline time.Duration) bool {
	if o.Status != OrderStatusAwaitingPayment {
		return false
	}
	return !now.Before(o.CreatedAt.Add(deadline))
}

// ExpiryCutoff is the creation time at or before which unpaid orders are expired.
func ExpiryCutoff(now time.Time, deadline time.Duration) time.Time {
	return now.Add(-deadline)
}

// Subtotal is the sum of the line amounts, without delivery.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Amount())
	}
	return sum
}
