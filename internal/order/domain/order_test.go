package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPendingPayment,
		OrderStatusPaid,
		OrderStatusFulfilling,
		OrderStatusCompleted,
		OrderStatusCancelled,
		OrderStatusExpired,
	}
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusPendingPayment: {
			OrderStatusPaid:      true,
			OrderStatusCancelled: true,
			OrderStatusExpired:   true,
		},
		OrderStatusPaid:       {OrderStatusFulfilling: true},
		OrderStatusFulfilling: {OrderStatusCompleted: true},
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransitionTo(to)
			want := allowed[from][to]
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPendingPayment.IsTerminal())
	assert.False(t, OrderStatusPaid.IsTerminal())
	assert.False(t, OrderStatusFulfilling.IsTerminal())
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusExpired.IsTerminal())
}

func TestNewRevenue(t *testing.T) {
	order := &Order{
		OrderNumber:   "ORD-1700000000000-ABCDEF",
		TotalAmount:   decimal.NewFromInt(3_100_000),
		CustomerName:  "Budi",
		PaymentMethod: PaymentMethodQRCode,
	}
	order.ID = 42

	before := time.Now()
	revenue := NewRevenue(order, ConfirmedByWebhook)

	assert.Equal(t, uint(42), revenue.OrderID)
	assert.Equal(t, order.OrderNumber, revenue.OrderNumber)
	assert.True(t, revenue.Amount.Equal(order.TotalAmount))
	assert.Equal(t, ConfirmedByWebhook, revenue.ConfirmedBy)
	assert.Equal(t, "Budi", revenue.CustomerName)
	assert.Equal(t, PaymentMethodQRCode, revenue.PaymentMethod)
	assert.False(t, revenue.RevenueDate.Before(before))
}
