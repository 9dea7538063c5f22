package application

import (
	"context"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
	"github.com/shopspring/decimal"
)

// WebhookStatus 网关回调状态归一化结果
type WebhookStatus string

const (
	WebhookStatusSuccess WebhookStatus = "SUCCESS"
	WebhookStatusFailure WebhookStatus = "FAILURE"
	WebhookStatusUnknown WebhookStatus = "UNKNOWN"
)

// 网关原始状态映射表
var webhookStatusMap = map[string]WebhookStatus{
	"SUCCESS":    WebhookStatusSuccess,
	"PAID":       WebhookStatusSuccess,
	"SETTLED":    WebhookStatusSuccess,
	"FAILED":     WebhookStatusFailure,
	"EXPIRED":    WebhookStatusFailure,
	"CANCELLED":  WebhookStatusFailure,
	"DECLINED":   WebhookStatusFailure,
	"CHARGEBACK": WebhookStatusFailure,
}

// MapWebhookStatus 网关状态归一化，未知值归为 UNKNOWN
func MapWebhookStatus(raw string) WebhookStatus {
	if mapped, ok := webhookStatusMap[raw]; ok {
		return mapped
	}
	return WebhookStatusUnknown
}

// WebhookEvent 网关回调事件
// Amount 为印尼盾整数；金额换算只发生在这一边界
type WebhookEvent struct {
	ExternalID    string `json:"external_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

// SettlementService 清算服务
// webhook 与后台人工确认共用同一条守护式状态迁移与入账路径
type SettlementService struct {
	orders   domain.OrderRepository
	revenues domain.RevenueRepository
	stock    domain.StockReserver
	metrics  *metrics.Metrics
}

// NewSettlementService 创建清算服务
func NewSettlementService(
	orders domain.OrderRepository,
	revenues domain.RevenueRepository,
	stock domain.StockReserver,
	m *metrics.Metrics,
) *SettlementService {
	return &SettlementService{
		orders:   orders,
		revenues: revenues,
		stock:    stock,
		metrics:  m,
	}
}

// HandleWebhook 处理网关回调
// 幂等：重复回调与并发竞态都以守护式更新的生效行数为准
func (s *SettlementService) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	order, err := s.orders.GetByExternalID(ctx, event.ExternalID)
	if err != nil {
		return err
	}

	// 已经离开待支付的订单：重复回调；PAID 且流水缺失说明上次入账没写成，这里补上再确认
	if order.Status != domain.OrderStatusPendingPayment {
		if order.Status == domain.OrderStatusPaid {
			if err := s.ensureRevenue(ctx, order, domain.ConfirmedByWebhook); err != nil {
				return err
			}
		}
		logger.Info(ctx, "webhook for settled order acknowledged",
			"order_number", order.OrderNumber,
			"status", order.Status,
			"webhook_status", event.Status,
		)
		return nil
	}

	switch MapWebhookStatus(event.Status) {
	case WebhookStatusSuccess:
		amount := decimal.NewFromInt(event.Amount)
		if !amount.Equal(order.TotalAmount) {
			logger.Error(ctx, "webhook amount mismatch",
				"order_number", order.OrderNumber,
				"webhook_amount", amount.String(),
				"order_total", order.TotalAmount.String(),
			)
			return fmt.Errorf("%w: got %s, want %s", domain.ErrAmountMismatch, amount, order.TotalAmount)
		}
		return s.confirmPaid(ctx, order, domain.ConfirmedByWebhook)

	case WebhookStatusFailure:
		return s.cancel(ctx, order, fmt.Sprintf("gateway reported %s", event.Status))

	default:
		// 未知状态只记日志，订单不动，让网关停止重发
		logger.Error(ctx, "unknown webhook status acknowledged",
			"order_number", order.OrderNumber,
			"webhook_status", event.Status,
		)
		return nil
	}
}

// ConfirmPayment 后台人工确认支付
func (s *SettlementService) ConfirmPayment(ctx context.Context, orderNumber, adminName string) error {
	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return fmt.Errorf("%w: order %s is %s", domain.ErrOrderTerminal, orderNumber, order.Status)
	}
	if adminName == "" {
		adminName = "ADMIN"
	}
	if order.Status != domain.OrderStatusPendingPayment {
		// 已支付，幂等返回；流水缺失则补记
		if order.Status == domain.OrderStatusPaid {
			return s.ensureRevenue(ctx, order, adminName)
		}
		return nil
	}
	return s.confirmPaid(ctx, order, adminName)
}

// confirmPaid 守护式 PENDING_PAYMENT→PAID，入账一次
func (s *SettlementService) confirmPaid(ctx context.Context, order *domain.Order, confirmedBy string) error {
	now := time.Now()
	updated, err := s.orders.UpdateStatusIf(ctx, order.ID, domain.OrderStatusPendingPayment, domain.OrderStatusPaid, now)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !updated {
		// 并发方先完成了迁移，按重复回调处理
		logger.Info(ctx, "concurrent transition won, treating as duplicate",
			"order_number", order.OrderNumber,
		)
		return nil
	}

	// 支付时占库存模式在这里扣减
	if !order.StockReserved {
		for _, item := range order.Items {
			if err := s.stock.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
				// 订单已 PAID；超卖缺口交给人工补救，不回滚支付
				logger.Error(ctx, "reserve-at-payment decrement failed",
					"order_number", order.OrderNumber,
					"product_id", item.ProductID,
					"error", err,
				)
			}
		}
	}

	revenue := domain.NewRevenue(order, confirmedBy)
	if err := s.revenues.Save(ctx, revenue); err != nil {
		// 唯一索引兜底：同单重复入账必须在这里炸出来
		return fmt.Errorf("record revenue for order %s: %w", order.OrderNumber, err)
	}

	s.metrics.PaymentsConfirmedTotal.Inc()
	logger.Info(ctx, "payment confirmed",
		"order_number", order.OrderNumber,
		"amount", order.TotalAmount.String(),
		"confirmed_by", confirmedBy,
	)
	return nil
}

// ensureRevenue 已 PAID 订单的流水兜底
// 状态迁移与入账是两次写，中间一旦失败或进程中断，靠重试回调走到这里闭合
func (s *SettlementService) ensureRevenue(ctx context.Context, order *domain.Order, confirmedBy string) error {
	existing, err := s.revenues.GetByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("check revenue for order %s: %w", order.OrderNumber, err)
	}
	if existing != nil {
		return nil
	}

	logger.Warn(ctx, "revenue missing for paid order, recording now",
		"order_number", order.OrderNumber,
		"amount", order.TotalAmount.String(),
	)
	if err := s.revenues.Save(ctx, domain.NewRevenue(order, confirmedBy)); err != nil {
		// 失败留给下一次重试，不吞掉
		return fmt.Errorf("record revenue for order %s: %w", order.OrderNumber, err)
	}
	s.metrics.PaymentsConfirmedTotal.Inc()
	return nil
}

// cancel 守护式 PENDING_PAYMENT→CANCELLED，占了库存则退回
func (s *SettlementService) cancel(ctx context.Context, order *domain.Order, reason string) error {
	updated, err := s.orders.UpdateStatusIf(ctx, order.ID, domain.OrderStatusPendingPayment, domain.OrderStatusCancelled, time.Now())
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if !updated {
		return nil
	}

	if order.StockReserved {
		for _, item := range order.Items {
			if err := s.stock.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
				logger.Error(ctx, "release stock on cancel failed",
					"order_number", order.OrderNumber,
					"product_id", item.ProductID,
					"error", err,
				)
			}
		}
	}

	logger.Info(ctx, "order cancelled", "order_number", order.OrderNumber, "reason", reason)
	return nil
}
