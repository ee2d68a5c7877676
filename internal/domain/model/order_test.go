package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_Transitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusCreated:   {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusPreparing, OrderStatusReturned},
		OrderStatusPreparing: {OrderStatusShipped},
		OrderStatusShipped:   {OrderStatusDelivered},
	}
	all := []OrderStatus{
		OrderStatusCreated, OrderStatusPaid, OrderStatusPreparing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []OrderStatus{OrderStatusCreated, OrderStatusPaid, OrderStatusPreparing, OrderStatusShipped} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus("SHIPPED")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusShipped, s)

	_, ok = ParseOrderStatus("shipped")
	assert.False(t, ok)
}
