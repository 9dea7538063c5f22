// Package mysql 提供订单与营收仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"gorm.io/gorm"
)

type orderRepositoryImpl struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepositoryImpl{db: db}
}

// Save 实现 domain.OrderRepository.Save
// 订单头与明细在同一事务内落库
func (r *orderRepositoryImpl) Save(ctx context.Context, order *domain.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		logger.Error(ctx, "order_repository.save failed", "order_number", order.OrderNumber, "error", err)
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// GetByOrderNumber 实现 domain.OrderRepository.GetByOrderNumber
func (r *orderRepositoryImpl) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getBy(ctx, "order_number = ?", orderNumber)
}

// GetByExternalID 实现 domain.OrderRepository.GetByExternalID
func (r *orderRepositoryImpl) GetByExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	return r.getBy(ctx, "payment_external_id = ?", externalID)
}

func (r *orderRepositoryImpl) getBy(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Preload("Items").Where(query, arg).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		logger.Error(ctx, "order_repository.get failed", "query", query, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// UpdateStatusIf 实现 domain.OrderRepository.UpdateStatusIf
// 条件更新：WHERE 带上期望状态，生效行数为 0 说明状态已被并发方改走
func (r *orderRepositoryImpl) UpdateStatusIf(ctx context.Context, orderID uint, expected, next domain.OrderStatus, stampAt time.Time) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, expected, next)
	}

	updates := map[string]any{"status": string(next)}
	switch next {
	case domain.OrderStatusPaid:
		updates["paid_at"] = stampAt
	case domain.OrderStatusCancelled:
		updates["cancelled_at"] = stampAt
	case domain.OrderStatusExpired:
		updates["expired_at"] = stampAt
	}

	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, string(expected)).
		Updates(updates)
	if result.Error != nil {
		logger.Error(ctx, "order_repository.update_status_if failed",
			"order_id", orderID,
			"expected", expected,
			"next", next,
			"error", result.Error,
		)
		return false, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListPendingBefore 实现 domain.OrderRepository.ListPendingBefore
func (r *orderRepositoryImpl) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("status = ? AND payment_deadline < ?", string(domain.OrderStatusPendingPayment), before).
		Order("payment_deadline asc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		logger.Error(ctx, "order_repository.list_pending_before failed", "error", err)
		return nil, fmt.Errorf("failed to list expired pending orders: %w", err)
	}
	return orders, nil
}

// ListByStatus 实现 domain.OrderRepository.ListByStatus
func (r *orderRepositoryImpl) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, int64, error) {
	var orders []*domain.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.Order{})
	if status != "" {
		db = db.Where("status = ?", string(status))
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Items").Order("created_at desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		logger.Error(ctx, "order_repository.list_by_status failed", "status", status, "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}
