// Package mysql 提供金价仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"gorm.io/gorm"
)

type goldRateRepositoryImpl struct {
	db *gorm.DB
}

// NewGoldRateRepository 创建金价仓储实例
func NewGoldRateRepository(db *gorm.DB) domain.GoldRateRepository {
	return &goldRateRepositoryImpl{db: db}
}

// Save 实现 domain.GoldRateRepository.Save
func (r *goldRateRepositoryImpl) Save(ctx context.Context, rate *domain.GoldRate) error {
	if err := r.db.WithContext(ctx).Create(rate).Error; err != nil {
		logger.Error(ctx, "goldrate_repository.save failed", "error", err)
		return fmt.Errorf("failed to save gold rate: %w", err)
	}
	return nil
}

// Latest 实现 domain.GoldRateRepository.Latest
func (r *goldRateRepositoryImpl) Latest(ctx context.Context) (*domain.GoldRate, error) {
	var rate domain.GoldRate
	err := r.db.WithContext(ctx).Order("effective_at desc, id desc").First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRateUnavailable
		}
		logger.Error(ctx, "goldrate_repository.latest failed", "error", err)
		return nil, fmt.Errorf("failed to get latest gold rate: %w", err)
	}
	return &rate, nil
}

// LatestBefore 实现 domain.GoldRateRepository.LatestBefore
func (r *goldRateRepositoryImpl) LatestBefore(ctx context.Context, t time.Time) (*domain.GoldRate, error) {
	var rate domain.GoldRate
	err := r.db.WithContext(ctx).
		Where("effective_at < ?", t).
		Order("effective_at desc, id desc").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRateUnavailable
		}
		logger.Error(ctx, "goldrate_repository.latest_before failed", "error", err)
		return nil, fmt.Errorf("failed to get gold rate before %s: %w", t, err)
	}
	return &rate, nil
}

// ListByRange 实现 domain.GoldRateRepository.ListByRange
func (r *goldRateRepositoryImpl) ListByRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*domain.GoldRate, int64, error) {
	var rates []*domain.GoldRate
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.GoldRate{}).
		Where("effective_at >= ? AND effective_at <= ?", from, to)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("effective_at desc").Limit(limit).Offset(offset).Find(&rates).Error; err != nil {
		logger.Error(ctx, "goldrate_repository.list_by_range failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list gold rates: %w", err)
	}
	return rates, total, nil
}

// SaveChange 实现 domain.GoldRateRepository.SaveChange
func (r *goldRateRepositoryImpl) SaveChange(ctx context.Context, change *domain.GoldRateChange) error {
	if err := r.db.WithContext(ctx).Create(change).Error; err != nil {
		logger.Error(ctx, "goldrate_repository.save_change failed", "rate_id", change.RateID, "error", err)
		return fmt.Errorf("failed to save gold rate change: %w", err)
	}
	return nil
}

// ListChanges 实现 domain.GoldRateRepository.ListChanges
func (r *goldRateRepositoryImpl) ListChanges(ctx context.Context, limit int) ([]*domain.GoldRateChange, error) {
	var changes []*domain.GoldRateChange
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&changes).Error
	if err != nil {
		logger.Error(ctx, "goldrate_repository.list_changes failed", "error", err)
		return nil, fmt.Errorf("failed to list gold rate changes: %w", err)
	}
	return changes, nil
}
