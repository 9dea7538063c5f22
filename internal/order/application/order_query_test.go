package application

import (
	"context"
	"testing"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyAndMonthlyRevenue(t *testing.T) {
	revenues := newFakeRevenueRepository()
	query := NewOrderQueryService(newFakeOrderRepository(), revenues)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	save := func(orderID uint, amount int64, at time.Time) {
		require.NoError(t, revenues.Save(ctx, &domain.Revenue{
			OrderID:     orderID,
			OrderNumber: "ORD-x",
			Amount:      decimal.NewFromInt(amount),
			RevenueDate: at,
			ConfirmedBy: domain.ConfirmedByWebhook,
		}))
	}
	save(1, 1_600_000, day.Add(9*time.Hour))
	save(2, 3_100_000, day.Add(20*time.Hour))
	save(3, 2_000_000, day.AddDate(0, 0, 1)) // 次日

	daily, err := query.DailyRevenue(ctx, day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.True(t, daily.Equal(decimal.NewFromInt(4_700_000)), "got %s", daily)

	monthly, err := query.MonthlyRevenue(ctx, 2026, time.March)
	require.NoError(t, err)
	assert.True(t, monthly.Equal(decimal.NewFromInt(6_700_000)), "got %s", monthly)
}

func TestGetOrderNotFound(t *testing.T) {
	query := NewOrderQueryService(newFakeOrderRepository(), newFakeRevenueRepository())

	_, err := query.GetOrder(context.Background(), "ORD-missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
