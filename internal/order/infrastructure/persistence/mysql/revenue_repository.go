package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type revenueRepositoryImpl struct {
	db *gorm.DB
}

// NewRevenueRepository 创建营收仓储实例
func NewRevenueRepository(db *gorm.DB) domain.RevenueRepository {
	return &revenueRepositoryImpl{db: db}
}

// Save 实现 domain.RevenueRepository.Save
// order_id 唯一索引冲突原样上抛，绝不吞掉降级成第二条流水
func (r *revenueRepositoryImpl) Save(ctx context.Context, revenue *domain.Revenue) error {
	if err := r.db.WithContext(ctx).Create(revenue).Error; err != nil {
		logger.Error(ctx, "revenue_repository.save failed", "order_id", revenue.OrderID, "error", err)
		return fmt.Errorf("failed to save revenue: %w", err)
	}
	return nil
}

// GetByOrderID 实现 domain.RevenueRepository.GetByOrderID
func (r *revenueRepositoryImpl) GetByOrderID(ctx context.Context, orderID uint) (*domain.Revenue, error) {
	var revenue domain.Revenue
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&revenue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "revenue_repository.get_by_order_id failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to get revenue: %w", err)
	}
	return &revenue, nil
}

// SumByRange 实现 domain.RevenueRepository.SumByRange
func (r *revenueRepositoryImpl) SumByRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&domain.Revenue{}).
		Where("revenue_date >= ? AND revenue_date < ?", from, to).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil {
		logger.Error(ctx, "revenue_repository.sum_by_range failed", "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// List 实现 domain.RevenueRepository.List
func (r *revenueRepositoryImpl) List(ctx context.Context, from, to time.Time, limit, offset int) ([]*domain.Revenue, int64, error) {
	var revenues []*domain.Revenue
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.Revenue{}).
		Where("revenue_date >= ? AND revenue_date < ?", from, to)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("revenue_date desc").Limit(limit).Offset(offset).Find(&revenues).Error; err != nil {
		logger.Error(ctx, "revenue_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list revenues: %w", err)
	}
	return revenues, total, nil
}
