package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRevenueRepository 内存营收仓储，模拟 order_id 唯一索引
type fakeRevenueRepository struct {
	mu       sync.Mutex
	revenues map[uint]*domain.Revenue
	// 下一次 Save 强制失败（消费一次），模拟瞬时故障
	failNext error
}

func newFakeRevenueRepository() *fakeRevenueRepository {
	return &fakeRevenueRepository{revenues: make(map[uint]*domain.Revenue)}
}

func (f *fakeRevenueRepository) Save(ctx context.Context, revenue *domain.Revenue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	if _, exists := f.revenues[revenue.OrderID]; exists {
		return fmt.Errorf("duplicate entry for order_id %d", revenue.OrderID)
	}
	clone := *revenue
	f.revenues[revenue.OrderID] = &clone
	return nil
}

func (f *fakeRevenueRepository) GetByOrderID(ctx context.Context, orderID uint) (*domain.Revenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.revenues[orderID]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (f *fakeRevenueRepository) SumByRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, r := range f.revenues {
		if !r.RevenueDate.Before(from) && r.RevenueDate.Before(to) {
			sum = sum.Add(r.Amount)
		}
	}
	return sum, nil
}

func (f *fakeRevenueRepository) List(ctx context.Context, from, to time.Time, limit, offset int) ([]*domain.Revenue, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Revenue
	for _, r := range f.revenues {
		clone := *r
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRevenueRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.revenues)
}

type settlementFixture struct {
	svc      *SettlementService
	orders   *fakeOrderRepository
	revenues *fakeRevenueRepository
	stock    *fakeStockReserver
}

func newSettlementFixture() *settlementFixture {
	orders := newFakeOrderRepository()
	revenues := newFakeRevenueRepository()
	stock := newFakeStockReserver(map[uint]int{1: 10})
	svc := NewSettlementService(orders, revenues, stock, metrics.New("test"))
	return &settlementFixture{svc: svc, orders: orders, revenues: revenues, stock: stock}
}

func (fx *settlementFixture) placeOrder(t *testing.T, stockReserved bool) *domain.Order {
	t.Helper()
	order := &domain.Order{
		OrderNumber:       fmt.Sprintf("ORD-1700000000000-%06d", fx.orders.nextID),
		Status:            domain.OrderStatusPendingPayment,
		TotalAmount:       decimal.NewFromInt(3_200_000),
		CustomerName:      "Budi",
		PaymentMethod:     domain.PaymentMethodQRCode,
		PaymentExternalID: fmt.Sprintf("ext-%d", fx.orders.nextID),
		PaymentDeadline:   time.Now().Add(2 * time.Hour),
		StockReserved:     stockReserved,
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Cincin Emas", Quantity: 2, UnitPrice: decimal.NewFromInt(1_600_000), Subtotal: decimal.NewFromInt(3_200_000)},
		},
	}
	require.NoError(t, fx.orders.Save(context.Background(), order))
	return order
}

func TestWebhookSuccessConfirmsAndRecordsRevenue(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: order.PaymentExternalID,
		Status:     "PAID",
		Amount:     3_200_000,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, fx.orders.statusOf(order.ID))
	assert.Equal(t, 1, fx.revenues.count())

	revenue, err := fx.revenues.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, revenue)
	assert.Equal(t, domain.ConfirmedByWebhook, revenue.ConfirmedBy)
	assert.True(t, revenue.Amount.Equal(order.TotalAmount))

	// 下单时已占库存，确认支付不再扣
	assert.Equal(t, 10, fx.stock.stock[1])
}

func TestWebhookDuplicateAcknowledgedOnce(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)
	event := WebhookEvent{ExternalID: order.PaymentExternalID, Status: "SUCCESS", Amount: 3_200_000}
	ctx := context.Background()

	require.NoError(t, fx.svc.HandleWebhook(ctx, event))
	// 网关重发同一事件
	require.NoError(t, fx.svc.HandleWebhook(ctx, event))

	assert.Equal(t, 1, fx.revenues.count())
	assert.Equal(t, domain.OrderStatusPaid, fx.orders.statusOf(order.ID))
}

func TestWebhookAmountMismatchLeavesOrderPending(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: order.PaymentExternalID,
		Status:     "SUCCESS",
		Amount:     1_000_000,
	})
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)

	assert.Equal(t, domain.OrderStatusPendingPayment, fx.orders.statusOf(order.ID))
	assert.Equal(t, 0, fx.revenues.count())
}

func TestWebhookFailureCancelsAndReleasesStock(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)
	fx.stock.stock[1] = 8 // 下单已占 2 件

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: order.PaymentExternalID,
		Status:     "EXPIRED",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, fx.orders.statusOf(order.ID))
	assert.Equal(t, 10, fx.stock.stock[1])
	assert.Equal(t, 0, fx.revenues.count())
}

func TestWebhookFailureWithoutReservationSkipsRelease(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, false)

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: order.PaymentExternalID,
		Status:     "DECLINED",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, fx.orders.statusOf(order.ID))
	assert.Empty(t, fx.stock.releases)
}

func TestWebhookUnknownStatusAcknowledgedWithoutChange(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: order.PaymentExternalID,
		Status:     "PENDING_REVIEW",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPendingPayment, fx.orders.statusOf(order.ID))
	assert.Equal(t, 0, fx.revenues.count())
}

func TestWebhookUnknownOrder(t *testing.T) {
	fx := newSettlementFixture()

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: "ext-missing",
		Status:     "SUCCESS",
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestWebhookRetryRecoversMissedRevenue(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)
	fx.revenues.failNext = errors.New("mysql gone away")
	event := WebhookEvent{ExternalID: order.PaymentExternalID, Status: "SUCCESS", Amount: 3_200_000}
	ctx := context.Background()

	// 首次回调：状态已迁到 PAID，但入账失败
	err := fx.svc.HandleWebhook(ctx, event)
	require.Error(t, err)
	assert.Equal(t, domain.OrderStatusPaid, fx.orders.statusOf(order.ID))
	assert.Equal(t, 0, fx.revenues.count())

	// 网关重发：订单已 PAID 且流水缺失，这里补记后确认
	require.NoError(t, fx.svc.HandleWebhook(ctx, event))
	assert.Equal(t, 1, fx.revenues.count())

	revenue, err := fx.revenues.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, revenue)
	assert.Equal(t, domain.ConfirmedByWebhook, revenue.ConfirmedBy)
	assert.True(t, revenue.Amount.Equal(order.TotalAmount))

	// 再次重发不会产生第二条流水
	require.NoError(t, fx.svc.HandleWebhook(ctx, event))
	assert.Equal(t, 1, fx.revenues.count())
}

func TestConfirmPaymentRecoversMissedRevenue(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)
	fx.revenues.failNext = errors.New("deadlock found")
	ctx := context.Background()

	err := fx.svc.ConfirmPayment(ctx, order.OrderNumber, "siti")
	require.Error(t, err)
	assert.Equal(t, domain.OrderStatusPaid, fx.orders.statusOf(order.ID))
	assert.Equal(t, 0, fx.revenues.count())

	require.NoError(t, fx.svc.ConfirmPayment(ctx, order.OrderNumber, "siti"))
	assert.Equal(t, 1, fx.revenues.count())

	revenue, err := fx.revenues.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, revenue)
	assert.Equal(t, "siti", revenue.ConfirmedBy)
}

func TestConfirmPaidLosesRaceRecordsNothing(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)

	// 过期任务抢先把订单置为 EXPIRED，守护式更新落空
	stale, err := fx.orders.GetByExternalID(context.Background(), order.PaymentExternalID)
	require.NoError(t, err)
	updated, err := fx.orders.UpdateStatusIf(context.Background(), order.ID, domain.OrderStatusPendingPayment, domain.OrderStatusExpired, time.Now())
	require.NoError(t, err)
	require.True(t, updated)

	err = fx.svc.confirmPaid(context.Background(), stale, domain.ConfirmedByWebhook)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusExpired, fx.orders.statusOf(order.ID))
	assert.Equal(t, 0, fx.revenues.count())
}

func TestConfirmPaymentByAdmin(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)
	ctx := context.Background()

	require.NoError(t, fx.svc.ConfirmPayment(ctx, order.OrderNumber, "siti"))

	revenue, err := fx.revenues.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, revenue)
	assert.Equal(t, "siti", revenue.ConfirmedBy)

	// 重复确认幂等
	require.NoError(t, fx.svc.ConfirmPayment(ctx, order.OrderNumber, "siti"))
	assert.Equal(t, 1, fx.revenues.count())
}

func TestConfirmPaymentRejectsTerminalOrder(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, true)
	_, err := fx.orders.UpdateStatusIf(context.Background(), order.ID, domain.OrderStatusPendingPayment, domain.OrderStatusCancelled, time.Now())
	require.NoError(t, err)

	err = fx.svc.ConfirmPayment(context.Background(), order.OrderNumber, "siti")
	assert.ErrorIs(t, err, domain.ErrOrderTerminal)
}

func TestConfirmPaidDecrementsStockInReserveAtPaymentMode(t *testing.T) {
	fx := newSettlementFixture()
	order := fx.placeOrder(t, false)

	err := fx.svc.HandleWebhook(context.Background(), WebhookEvent{
		ExternalID: order.PaymentExternalID,
		Status:     "SETTLED",
		Amount:     3_200_000,
	})
	require.NoError(t, err)

	// 支付成功时才扣 2 件
	assert.Equal(t, 8, fx.stock.stock[1])
	assert.Equal(t, 1, fx.revenues.count())
}

func TestMapWebhookStatus(t *testing.T) {
	assert.Equal(t, WebhookStatusSuccess, MapWebhookStatus("SUCCESS"))
	assert.Equal(t, WebhookStatusSuccess, MapWebhookStatus("PAID"))
	assert.Equal(t, WebhookStatusSuccess, MapWebhookStatus("SETTLED"))
	assert.Equal(t, WebhookStatusFailure, MapWebhookStatus("FAILED"))
	assert.Equal(t, WebhookStatusFailure, MapWebhookStatus("CHARGEBACK"))
	assert.Equal(t, WebhookStatusUnknown, MapWebhookStatus("paid"))
	assert.Equal(t, WebhookStatusUnknown, MapWebhookStatus(""))
}
