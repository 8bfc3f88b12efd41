package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusAwaitingPayment, OrderStatusProcessing}: true,
		{OrderStatusAwaitingPayment, OrderStatusExpired}:    true,
		{OrderStatusProcessing, OrderStatusInTransit}:       true,
		{OrderStatusInTransit, OrderStatusDelivered}:        true,
	}
	all := []OrderStatus{
		OrderStatusAwaitingPayment, OrderStatusProcessing, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusExpired,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]OrderStatus{from, to}]
			assert.Equal(t, want, CanTransitionTo(from, to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusExpired.IsTerminal())
	assert.False(t, OrderStatusAwaitingPayment.IsTerminal())
	assert.False(t, OrderStatus("SHIPPED").IsValid())
}

func TestIsOperatorTarget(t *testing.T) {
	assert.True(t, IsOperatorTarget(OrderStatusInTransit))
	assert.True(t, IsOperatorTarget(OrderStatusDelivered))
	assert.False(t, IsOperatorTarget(OrderStatusProcessing))
	assert.False(t, IsOperatorTarget(OrderStatusExpired))
}
