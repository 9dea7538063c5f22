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

// fakeOrderRepository 内存订单仓储，UpdateStatusIf 与真实实现一样按当前状态守护
type fakeOrderRepository struct {
	mu      sync.Mutex
	orders  map[uint]*domain.Order
	nextID  uint
	saveErr error
	// 指定订单的状态更新强制失败
	failUpdateFor map[uint]error
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{
		orders:        make(map[uint]*domain.Order),
		nextID:        1,
		failUpdateFor: make(map[uint]error),
	}
}

func (f *fakeOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if order.ID == 0 {
		order.ID = f.nextID
		f.nextID++
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			clone := *o
			return &clone, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrderRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.PaymentExternalID == externalID {
			clone := *o
			return &clone, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrderRepository) UpdateStatusIf(ctx context.Context, orderID uint, expected, next domain.OrderStatus, stampAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpdateFor[orderID]; err != nil {
		return false, err
	}
	if !expected.CanTransitionTo(next) {
		return false, domain.ErrInvalidTransition
	}
	o, ok := f.orders[orderID]
	if !ok || o.Status != expected {
		return false, nil
	}
	o.Status = next
	switch next {
	case domain.OrderStatusPaid:
		o.PaidAt = &stampAt
	case domain.OrderStatusCancelled:
		o.CancelledAt = &stampAt
	case domain.OrderStatusExpired:
		o.ExpiredAt = &stampAt
	}
	return true, nil
}

func (f *fakeOrderRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for id := uint(1); id < f.nextID && len(out) < limit; id++ {
		o, ok := f.orders[id]
		if !ok {
			continue
		}
		if o.Status == domain.OrderStatusPendingPayment && o.PaymentDeadline.Before(before) {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeOrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for id := uint(1); id < f.nextID; id++ {
		if o, ok := f.orders[id]; ok && o.Status == status {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepository) statusOf(orderID uint) domain.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID].Status
}

// fakeProductReader 固定商品视图
type fakeProductReader struct {
	products map[uint]*ProductInfo
}

func (f *fakeProductReader) GetProduct(ctx context.Context, productID uint) (*ProductInfo, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d not found", productID)
	}
	clone := *p
	return &clone, nil
}

// fakeStockReserver 记录占用/归还调用，支持指定商品强制失败
type fakeStockReserver struct {
	mu       sync.Mutex
	stock    map[uint]int
	failFor  map[uint]error
	reserves []uint // 占用顺序
	releases []uint // 归还顺序
}

func newFakeStockReserver(stock map[uint]int) *fakeStockReserver {
	return &fakeStockReserver{stock: stock, failFor: make(map[uint]error)}
}

func (f *fakeStockReserver) ReserveStock(ctx context.Context, productID uint, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[productID]; err != nil {
		return err
	}
	if f.stock[productID] < qty {
		return fmt.Errorf("%w: product %d", errOutOfStockTest, productID)
	}
	f.stock[productID] -= qty
	f.reserves = append(f.reserves, productID)
	return nil
}

func (f *fakeStockReserver) ReleaseStock(ctx context.Context, productID uint, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[productID] += qty
	f.releases = append(f.releases, productID)
	return nil
}

var errOutOfStockTest = errors.New("insufficient stock")

// fakeGateway 出固定指引
type fakeGateway struct {
	err   error
	calls int
}

func (f *fakeGateway) CreateInstruction(ctx context.Context, order *domain.Order) (*domain.PaymentInstruction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PaymentInstruction{
		Method:     order.PaymentMethod,
		ExternalID: order.PaymentExternalID,
		Payload:    "00020101",
		ExpiresAt:  order.PaymentDeadline,
	}, nil
}

type checkoutFixture struct {
	svc      *CheckoutService
	orders   *fakeOrderRepository
	products *fakeProductReader
	stock    *fakeStockReserver
	gateway  *fakeGateway
}

func newCheckoutFixture(cfg CheckoutConfig) *checkoutFixture {
	orders := newFakeOrderRepository()
	products := &fakeProductReader{products: map[uint]*ProductInfo{
		1: {ID: 1, Name: "Cincin Emas", Price: decimal.NewFromInt(1_600_000), Active: true, Stock: 10},
		2: {ID: 2, Name: "Gelang Emas", Price: decimal.NewFromInt(3_100_000), Active: true, Stock: 5},
		3: {ID: 3, Name: "Kalung Lama", Price: decimal.NewFromInt(2_000_000), Active: false, Stock: 3},
	}}
	stock := newFakeStockReserver(map[uint]int{1: 10, 2: 5, 3: 3})
	gateway := &fakeGateway{}
	svc := NewCheckoutService(orders, products, stock, gateway, cfg, metrics.New("test"))
	return &checkoutFixture{svc: svc, orders: orders, products: products, stock: stock, gateway: gateway}
}

func checkoutCommand(items ...CheckoutItem) CheckoutCommand {
	return CheckoutCommand{
		Items:         items,
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentMethodQRCode,
	}
}

func TestCheckoutFreezesPricesAndReservesStock(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})

	result, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 2},
		CheckoutItem{ProductID: 2, Quantity: 1},
	))
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	assert.True(t, order.StockReserved)
	assert.NotEmpty(t, order.OrderNumber)
	assert.NotEmpty(t, order.PaymentExternalID)

	// 2×1_600_000 + 1×3_100_000
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(6_300_000)), "got %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(1_600_000)))
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.NewFromInt(3_200_000)))

	assert.Equal(t, 8, fx.stock.stock[1])
	assert.Equal(t, 4, fx.stock.stock[2])

	require.NotNil(t, result.Instruction)
	assert.Equal(t, order.PaymentExternalID, result.Instruction.ExternalID)
}

func TestSavedOrderKeepsPriceAfterReprice(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})

	result, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 2},
	))
	require.NoError(t, err)

	// 金价上涨触发重定价，目录价变了
	fx.products.products[1].Price = decimal.NewFromInt(1_900_000)

	// 已落库订单的单价和总额仍是下单时刻的价
	saved, err := fx.orders.GetByOrderNumber(context.Background(), result.Order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, saved.Items, 1)
	assert.True(t, saved.Items[0].UnitPrice.Equal(decimal.NewFromInt(1_600_000)), "got %s", saved.Items[0].UnitPrice)
	assert.True(t, saved.TotalAmount.Equal(decimal.NewFromInt(3_200_000)), "got %s", saved.TotalAmount)
}

func TestCheckoutRollsBackReservationsInReverseOrder(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})
	fx.stock.failFor[2] = errOutOfStockTest

	_, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 2},
		CheckoutItem{ProductID: 2, Quantity: 1},
	))
	require.Error(t, err)

	// 商品 1 已占的 2 件被退回
	assert.Equal(t, 10, fx.stock.stock[1])
	assert.Equal(t, []uint{1}, fx.stock.releases)
	assert.Empty(t, fx.orders.orders)
}

func TestCheckoutReleasesStockWhenSaveFails(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})
	fx.orders.saveErr = errors.New("mysql gone away")

	_, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 3},
	))
	require.Error(t, err)

	assert.Equal(t, 10, fx.stock.stock[1])
	assert.Equal(t, 0, fx.gateway.calls)
}

func TestCheckoutAvailabilityOnlyMode(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: false, PaymentTTL: 2 * time.Hour})

	result, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 2},
	))
	require.NoError(t, err)

	// 只校验可售，不动库存
	assert.False(t, result.Order.StockReserved)
	assert.Equal(t, 10, fx.stock.stock[1])
	assert.Empty(t, fx.stock.reserves)
}

func TestCheckoutAvailabilityOnlyRejectsShortStock(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: false, PaymentTTL: 2 * time.Hour})

	_, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 2, Quantity: 6},
	))
	assert.Error(t, err)
}

func TestCheckoutValidation(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})
	ctx := context.Background()

	_, err := fx.svc.Checkout(ctx, checkoutCommand())
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	_, err = fx.svc.Checkout(ctx, checkoutCommand(CheckoutItem{ProductID: 1, Quantity: 0}))
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	_, err = fx.svc.Checkout(ctx, checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 1},
		CheckoutItem{ProductID: 1, Quantity: 2},
	))
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	// 下架商品
	_, err = fx.svc.Checkout(ctx, checkoutCommand(CheckoutItem{ProductID: 3, Quantity: 1}))
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	// 不存在的商品
	_, err = fx.svc.Checkout(ctx, checkoutCommand(CheckoutItem{ProductID: 99, Quantity: 1}))
	assert.ErrorIs(t, err, domain.ErrInvalidItem)

	cmd := checkoutCommand(CheckoutItem{ProductID: 1, Quantity: 1})
	cmd.CustomerName = ""
	_, err = fx.svc.Checkout(ctx, cmd)
	assert.Error(t, err)

	cmd = checkoutCommand(CheckoutItem{ProductID: 1, Quantity: 1})
	cmd.PaymentMethod = "CASH"
	_, err = fx.svc.Checkout(ctx, cmd)
	assert.Error(t, err)
}

func TestCheckoutEnforcesMinimumTTL(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: time.Minute})

	result, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 1},
	))
	require.NoError(t, err)

	// 配置低于 1 小时被抬到 1 小时
	assert.True(t, result.Order.PaymentDeadline.After(time.Now().Add(59*time.Minute)))
}

func TestCheckoutIgnoresClientTotal(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})

	wrong := decimal.NewFromInt(1)
	cmd := checkoutCommand(CheckoutItem{ProductID: 1, Quantity: 1})
	cmd.ClientTotal = &wrong

	result, err := fx.svc.Checkout(context.Background(), cmd)
	require.NoError(t, err)

	// 服务端计价为准
	assert.True(t, result.Order.TotalAmount.Equal(decimal.NewFromInt(1_600_000)))
}

func TestCheckoutGatewayFailureKeepsOrder(t *testing.T) {
	fx := newCheckoutFixture(CheckoutConfig{ReserveStock: true, PaymentTTL: 2 * time.Hour})
	fx.gateway.err = errors.New("gateway unavailable")

	_, err := fx.svc.Checkout(context.Background(), checkoutCommand(
		CheckoutItem{ProductID: 1, Quantity: 1},
	))
	require.Error(t, err)

	// 订单已落库，库存保持占用，指引可补取
	assert.Len(t, fx.orders.orders, 1)
	assert.Equal(t, 9, fx.stock.stock[1])
	assert.Empty(t, fx.stock.releases)
}
