package application

import (
	"context"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/utils"
	"github.com/shopspring/decimal"
)

// OrderQueryService 订单读服务
type OrderQueryService struct {
	orders   domain.OrderRepository
	revenues domain.RevenueRepository
}

// NewOrderQueryService 创建订单读服务
func NewOrderQueryService(orders domain.OrderRepository, revenues domain.RevenueRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders, revenues: revenues}
}

// GetOrder 按订单号查询
func (s *OrderQueryService) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orders.GetByOrderNumber(ctx, orderNumber)
}

// ListOrders 按状态分页
func (s *OrderQueryService) ListOrders(ctx context.Context, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, *utils.Pagination, error) {
	p := utils.NewPagination(page, pageSize, 0)
	orders, total, err := s.orders.ListByStatus(ctx, status, p.Limit(), p.Offset())
	if err != nil {
		return nil, nil, err
	}
	return orders, utils.NewPagination(page, pageSize, total), nil
}

// DailyRevenue 当日营收合计
func (s *OrderQueryService) DailyRevenue(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.revenues.SumByRange(ctx, start, start.AddDate(0, 0, 1))
}

// MonthlyRevenue 当月营收合计
func (s *OrderQueryService) MonthlyRevenue(ctx context.Context, year int, month time.Month) (decimal.Decimal, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return s.revenues.SumByRange(ctx, start, start.AddDate(0, 1, 0))
}

// ListRevenues 营收流水分页
func (s *OrderQueryService) ListRevenues(ctx context.Context, from, to time.Time, page, pageSize int) ([]*domain.Revenue, *utils.Pagination, error) {
	if to.IsZero() {
		to = time.Now()
	}
	p := utils.NewPagination(page, pageSize, 0)
	revenues, total, err := s.revenues.List(ctx, from, to, p.Limit(), p.Offset())
	if err != nil {
		return nil, nil, err
	}
	return revenues, utils.NewPagination(page, pageSize, total), nil
}
