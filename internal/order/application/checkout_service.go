// Package application 实现订单上下文的应用服务
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
	"github.com/fajarrafsan02-bit/tokweb/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInfo 下单所需的商品视图
type ProductInfo struct {
	ID     uint
	Name   string
	Price  decimal.Decimal
	Active bool
	Stock  int
}

// ProductReader 商品读取端口，由商品目录上下文实现
type ProductReader interface {
	GetProduct(ctx context.Context, productID uint) (*ProductInfo, error)
}

// CheckoutConfig 下单行为配置
type CheckoutConfig struct {
	// true：下单即占库存；false：仅校验可售，支付成功时再扣
	ReserveStock bool
	// 支付时限
	PaymentTTL time.Duration
}

// CheckoutService 下单服务
type CheckoutService struct {
	orders   domain.OrderRepository
	products ProductReader
	stock    domain.StockReserver
	gateway  domain.PaymentGateway
	cfg      CheckoutConfig
	metrics  *metrics.Metrics
}

// NewCheckoutService 创建下单服务
func NewCheckoutService(
	orders domain.OrderRepository,
	products ProductReader,
	stock domain.StockReserver,
	gateway domain.PaymentGateway,
	cfg CheckoutConfig,
	m *metrics.Metrics,
) *CheckoutService {
	if cfg.PaymentTTL < time.Hour {
		cfg.PaymentTTL = time.Hour
	}
	return &CheckoutService{
		orders:   orders,
		products: products,
		stock:    stock,
		gateway:  gateway,
		cfg:      cfg,
		metrics:  m,
	}
}

// CheckoutItem 下单行
type CheckoutItem struct {
	ProductID uint
	Quantity  int
}

// CheckoutCommand 下单命令
type CheckoutCommand struct {
	Items           []CheckoutItem
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	PaymentMethod   domain.PaymentMethod
	// 客户端展示的总价，仅用于对账日志，不参与计价
	ClientTotal *decimal.Decimal
	Notes       string
}

// CheckoutResult 下单结果
type CheckoutResult struct {
	Order       *domain.Order              `json:"order"`
	Instruction *domain.PaymentInstruction `json:"instruction"`
}

// Checkout 下单主流程
// 校验 → 占库存（失败逆序回滚）→ 冻结单价 → 落库 → 出支付指引
func (s *CheckoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	// 校验商品并冻结当前售价
	infos := make([]*ProductInfo, len(cmd.Items))
	for i, item := range cmd.Items {
		info, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", domain.ErrInvalidItem, item.ProductID, err)
		}
		if !info.Active {
			return nil, fmt.Errorf("%w: product %d is inactive", domain.ErrInvalidItem, item.ProductID)
		}
		infos[i] = info
	}

	// 占库存；任一行失败则把已占的逆序退回
	var reserved []CheckoutItem
	if s.cfg.ReserveStock {
		for _, item := range cmd.Items {
			if err := s.stock.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.rollbackReservations(ctx, reserved)
				return nil, fmt.Errorf("reserve stock for product %d: %w", item.ProductID, err)
			}
			reserved = append(reserved, item)
		}
	} else {
		for i, item := range cmd.Items {
			if infos[i].Stock < item.Quantity {
				return nil, fmt.Errorf("product %d has %d in stock, requested %d", item.ProductID, infos[i].Stock, item.Quantity)
			}
		}
	}

	order := s.buildOrder(cmd, infos)

	if cmd.ClientTotal != nil && !cmd.ClientTotal.Equal(order.TotalAmount) {
		logger.Warn(ctx, "client total mismatch, server amount wins",
			"order_number", order.OrderNumber,
			"client_total", cmd.ClientTotal.String(),
			"server_total", order.TotalAmount.String(),
		)
	}

	if err := s.orders.Save(ctx, order); err != nil {
		s.rollbackReservations(ctx, reserved)
		return nil, fmt.Errorf("save order: %w", err)
	}

	instruction, err := s.gateway.CreateInstruction(ctx, order)
	if err != nil {
		// 订单已落库，指引可重新获取，不回滚
		logger.Error(ctx, "create payment instruction failed", "order_number", order.OrderNumber, "error", err)
		return nil, fmt.Errorf("create payment instruction: %w", err)
	}

	s.metrics.OrdersTotal.Inc()
	logger.Info(ctx, "order placed",
		"order_number", order.OrderNumber,
		"total_amount", order.TotalAmount.String(),
		"stock_reserved", order.StockReserved,
		"payment_deadline", order.PaymentDeadline,
	)
	return &CheckoutResult{Order: order, Instruction: instruction}, nil
}

func (s *CheckoutService) validate(cmd CheckoutCommand) error {
	if len(cmd.Items) == 0 {
		return fmt.Errorf("%w: order has no items", domain.ErrInvalidItem)
	}
	seen := make(map[uint]bool, len(cmd.Items))
	for _, item := range cmd.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: product %d quantity must be at least 1", domain.ErrInvalidItem, item.ProductID)
		}
		if seen[item.ProductID] {
			return fmt.Errorf("%w: product %d listed more than once", domain.ErrInvalidItem, item.ProductID)
		}
		seen[item.ProductID] = true
	}
	if cmd.CustomerName == "" {
		return fmt.Errorf("customer name is required")
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodQRCode, domain.PaymentMethodBankTransfer:
	default:
		return fmt.Errorf("unsupported payment method %q", cmd.PaymentMethod)
	}
	return nil
}

func (s *CheckoutService) buildOrder(cmd CheckoutCommand, infos []*ProductInfo) *domain.Order {
	now := time.Now()
	total := decimal.Zero
	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		subtotal := infos[i].Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: infos[i].Name,
			Quantity:    item.Quantity,
			UnitPrice:   infos[i].Price,
			Subtotal:    subtotal,
		}
		total = total.Add(subtotal)
	}

	return &domain.Order{
		OrderNumber:       fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), utils.RandString(6)),
		Status:            domain.OrderStatusPendingPayment,
		TotalAmount:       total,
		CustomerName:      cmd.CustomerName,
		CustomerEmail:     cmd.CustomerEmail,
		CustomerPhone:     cmd.CustomerPhone,
		ShippingAddress:   cmd.ShippingAddress,
		PaymentMethod:     cmd.PaymentMethod,
		PaymentExternalID: uuid.New().String(),
		PaymentDeadline:   now.Add(s.cfg.PaymentTTL),
		StockReserved:     s.cfg.ReserveStock,
		Notes:             cmd.Notes,
		Items:             items,
	}
}

// rollbackReservations 逆序退回已占库存
func (s *CheckoutService) rollbackReservations(ctx context.Context, reserved []CheckoutItem) {
	for i := len(reserved) - 1; i >= 0; i-- {
		item := reserved[i]
		if err := s.stock.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			logger.Error(ctx, "rollback reservation failed",
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", err,
			)
		}
	}
}
