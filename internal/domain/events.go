package domain

import "time"

const (
	EventOrderAccepted = "order.accepted"
	EventOrderPaid     = "order.paid"
)

// OrderEvent is published when an order enters fulfillment. Consumers use OccurredAt to
// decide whether the owner's cart still holds what was ordered.
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	AccountID  string      `json:"account_id"`
	Status     OrderStatus `json:"status"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order *Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    order.ID.String(),
		AccountID:  order.AccountID,
		Status:     order.Status,
		OccurredAt: at.UTC(),
	}
}
