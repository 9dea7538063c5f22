package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
)

// ExpiryJob 定期将超过支付时限的待支付订单置为过期并退回库存。
// 守护式更新落空说明并发回调抢先支付了，该单跳过；
// 单个订单失败不中断本轮扫描。
type ExpiryJob struct {
	orders    domain.OrderRepository
	stock     domain.StockReserver
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

func NewExpiryJob(
	orders domain.OrderRepository,
	stock domain.StockReserver,
	logger *slog.Logger,
	m *metrics.Metrics,
	interval time.Duration,
) *ExpiryJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpiryJob{
		orders:    orders,
		stock:     stock,
		logger:    logger,
		metrics:   m,
		interval:  interval,
		batchSize: 200,
	}
}

func (j *ExpiryJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Order expiry job started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep 扫描一轮过期订单
func (j *ExpiryJob) Sweep(ctx context.Context) {
	now := time.Now()
	orders, err := j.orders.ListPendingBefore(ctx, now, j.batchSize)
	if err != nil {
		j.logger.Error("list expired pending orders failed", "error", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	var expired int
	for _, order := range orders {
		if j.expireOne(ctx, order, now) {
			expired++
		}
	}
	j.logger.Info("expiry sweep finished", "candidates", len(orders), "expired", expired)
}

func (j *ExpiryJob) expireOne(ctx context.Context, order *domain.Order, now time.Time) bool {
	updated, err := j.orders.UpdateStatusIf(ctx, order.ID, domain.OrderStatusPendingPayment, domain.OrderStatusExpired, now)
	if err != nil {
		j.logger.Error("expire order failed", "order_number", order.OrderNumber, "error", err)
		return false
	}
	if !updated {
		// 并发回调把单子支付掉了
		j.logger.Info("order no longer pending, skipping expiry", "order_number", order.OrderNumber)
		return false
	}

	if order.StockReserved {
		for _, item := range order.Items {
			if err := j.stock.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
				j.logger.Error("release stock on expiry failed",
					"order_number", order.OrderNumber,
					"product_id", item.ProductID,
					"error", err,
				)
			}
		}
	}

	j.metrics.OrdersExpiredTotal.Inc()
	j.logger.Info("order expired", "order_number", order.OrderNumber, "deadline", order.PaymentDeadline)
	return true
}
