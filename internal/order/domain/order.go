// Package domain 包含订单上下文的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusFulfilling     OrderStatus = "FULFILLING"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusExpired        OrderStatus = "EXPIRED"
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodQRCode       PaymentMethod = "QR_CODE"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// 领域错误
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderTerminal     = errors.New("order is in a terminal state")
	ErrAmountMismatch    = errors.New("payment amount does not match order total")
	ErrInvalidItem       = errors.New("invalid order item")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// 状态机迁移表
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled, OrderStatusExpired},
	OrderStatusPaid:           {OrderStatusFulfilling},
	OrderStatusFulfilling:     {OrderStatusCompleted},
}

// CanTransitionTo 判断状态迁移是否合法
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal 是否终态
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusExpired, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// Order 订单实体
type Order struct {
	gorm.Model
	// 订单号，对外展示
	OrderNumber string `gorm:"column:order_number;type:varchar(40);uniqueIndex;not null" json:"order_number"`
	// 当前状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 订单总额（下单时冻结）
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(20,2);not null" json:"total_amount"`
	// 客户信息
	CustomerName    string `gorm:"column:customer_name;type:varchar(255);not null" json:"customer_name"`
	CustomerEmail   string `gorm:"column:customer_email;type:varchar(255)" json:"customer_email"`
	CustomerPhone   string `gorm:"column:customer_phone;type:varchar(30)" json:"customer_phone"`
	ShippingAddress string `gorm:"column:shipping_address;type:text" json:"shipping_address"`
	// 支付方式
	PaymentMethod PaymentMethod `gorm:"column:payment_method;type:varchar(20);not null" json:"payment_method"`
	// 支付网关侧标识，webhook 回查键
	PaymentExternalID string `gorm:"column:payment_external_id;type:varchar(64);uniqueIndex;not null" json:"payment_external_id"`
	// 支付截止时间
	PaymentDeadline time.Time `gorm:"column:payment_deadline;index;not null" json:"payment_deadline"`
	// 下单时是否已占库存
	StockReserved bool `gorm:"column:stock_reserved;not null;default:false" json:"stock_reserved"`
	// 状态时间戳
	PaidAt      *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time `gorm:"column:expired_at" json:"expired_at,omitempty"`
	Notes       string     `gorm:"column:notes;type:varchar(512)" json:"notes"`
	// 订单明细
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单明细
// UnitPrice 在下单时刻冻结，后续金价变动不影响
type OrderItem struct {
	gorm.Model
	OrderID     uint            `gorm:"column:order_id;index;not null" json:"order_id"`
	ProductID   uint            `gorm:"column:product_id;not null" json:"product_id"`
	ProductName string          `gorm:"column:product_name;type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:decimal(20,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:decimal(20,2);not null" json:"subtotal"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// 保存订单与明细（同事务）
	Save(ctx context.Context, order *Order) error
	// 按订单号获取
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	// 按支付网关标识获取
	GetByExternalID(ctx context.Context, externalID string) (*Order, error)
	// 条件状态更新：当前状态等于 expected 时才更新，返回是否生效
	UpdateStatusIf(ctx context.Context, orderID uint, expected, next OrderStatus, stampAt time.Time) (bool, error)
	// 截止时间早于 before 的待支付订单
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*Order, error)
	// 按状态分页
	ListByStatus(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, int64, error)
}

// StockReserver 库存占用端口，由商品目录上下文实现
type StockReserver interface {
	ReserveStock(ctx context.Context, productID uint, qty int) error
	ReleaseStock(ctx context.Context, productID uint, qty int) error
}

// PaymentInstruction 支付指引
type PaymentInstruction struct {
	Method     PaymentMethod `json:"method"`
	ExternalID string        `json:"external_id"`
	// QR_CODE：EMV 报文；BANK_TRANSFER：转账说明
	Payload   string    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentGateway 支付网关端口
type PaymentGateway interface {
	CreateInstruction(ctx context.Context, order *Order) (*PaymentInstruction, error)
}
