package domain

type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusInTransit       OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	// OrderStatusExpired is never stored. An unpaid order past its deadline reads as
	// not found and is then deleted by the reaper.
	OrderStatusExpired OrderStatus = "EXPIRED"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusAwaitingPayment: {OrderStatusProcessing, OrderStatusExpired},
	OrderStatusProcessing:      {OrderStatusInTransit},
	OrderStatusInTransit:       {OrderStatusDelivered},
}

// CanTransitionTo reports whether the state machine allows from -> to.
func CanTransitionTo(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOperatorTarget reports whether an operator may move an order into s.
func IsOperatorTarget(s OrderStatus) bool {
	return s == OrderStatusInTransit || s == OrderStatusDelivered
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusExpired
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusAwaitingPayment, OrderStatusProcessing, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusExpired:
		return true
	}
	return false
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}
