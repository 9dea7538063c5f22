package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConfirmedByWebhook 网关回调确认
const ConfirmedByWebhook = "WEBHOOK"

// Revenue 营收流水
// OrderID 唯一索引是硬性约束：同一订单只允许入账一次，重复插入必须报错
type Revenue struct {
	gorm.Model
	OrderID       uint            `gorm:"column:order_id;uniqueIndex;not null" json:"order_id"`
	OrderNumber   string          `gorm:"column:order_number;type:varchar(40);index;not null" json:"order_number"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	RevenueDate   time.Time       `gorm:"column:revenue_date;index;not null" json:"revenue_date"`
	ConfirmedBy   string          `gorm:"column:confirmed_by;type:varchar(64);not null" json:"confirmed_by"`
	CustomerName  string          `gorm:"column:customer_name;type:varchar(255)" json:"customer_name"`
	PaymentMethod PaymentMethod   `gorm:"column:payment_method;type:varchar(20)" json:"payment_method"`
	Description   string          `gorm:"column:description;type:varchar(512)" json:"description"`
}

func (Revenue) TableName() string { return "revenues" }

// NewRevenue 由已支付订单生成营收流水
func NewRevenue(order *Order, confirmedBy string) *Revenue {
	return &Revenue{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.TotalAmount,
		RevenueDate:   time.Now(),
		ConfirmedBy:   confirmedBy,
		CustomerName:  order.CustomerName,
		PaymentMethod: order.PaymentMethod,
	}
}

// RevenueRepository 营收仓储接口
type RevenueRepository interface {
	// 插入流水，orderID 重复时必须返回错误
	Save(ctx context.Context, revenue *Revenue) error
	// 按订单查询
	GetByOrderID(ctx context.Context, orderID uint) (*Revenue, error)
	// 时间范围合计
	SumByRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	// 分页列表
	List(ctx context.Context, from, to time.Time, limit, offset int) ([]*Revenue, int64, error)
}
