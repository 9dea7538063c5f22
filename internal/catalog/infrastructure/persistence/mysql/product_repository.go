// Package mysql 提供商品仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/catalog/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepositoryImpl struct {
	db       *gorm.DB
	lockWait time.Duration
}

// NewProductRepository 创建商品仓储实例
// lockWait 限定行锁等待时间，超时返回可重试的 ErrLockTimeout
func NewProductRepository(db *gorm.DB, lockWait time.Duration) domain.ProductRepository {
	if lockWait <= 0 {
		lockWait = 3 * time.Second
	}
	return &productRepositoryImpl{db: db, lockWait: lockWait}
}

// Save 实现 domain.ProductRepository.Save
func (r *productRepositoryImpl) Save(ctx context.Context, product *domain.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		logger.Error(ctx, "product_repository.save failed", "product_id", product.ID, "error", err)
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// Get 实现 domain.ProductRepository.Get
func (r *productRepositoryImpl) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		logger.Error(ctx, "product_repository.get failed", "product_id", id, "error", err)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// List 实现 domain.ProductRepository.List
func (r *productRepositoryImpl) List(ctx context.Context, category domain.ProductCategory, activeOnly bool, limit, offset int) ([]*domain.Product, int64, error) {
	var products []*domain.Product
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.Product{})
	if category != "" {
		db = db.Where("category = ?", string(category))
	}
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		logger.Error(ctx, "product_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// ListActiveIDs 实现 domain.ProductRepository.ListActiveIDs
func (r *productRepositoryImpl) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("active = ?", true).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		logger.Error(ctx, "product_repository.list_active_ids failed", "error", err)
		return nil, fmt.Errorf("failed to list active product ids: %w", err)
	}
	return ids, nil
}

// UpdatePrice 实现 domain.ProductRepository.UpdatePrice
func (r *productRepositoryImpl) UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) error {
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		Update("price", price).Error
	if err != nil {
		logger.Error(ctx, "product_repository.update_price failed", "product_id", id, "error", err)
		return fmt.Errorf("failed to update product price: %w", err)
	}
	return nil
}

// ReserveStock 实现 domain.ProductRepository.ReserveStock
// 行锁内校验上架与库存后扣减，锁等待受限于 lockWait
func (r *productRepositoryImpl) ReserveStock(ctx context.Context, id uint, qty int) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	err := r.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		var product domain.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProductNotFound
			}
			return fmt.Errorf("lock product row: %w", err)
		}
		if !product.Active {
			return domain.ErrProductInactive
		}
		if product.Stock < qty {
			return fmt.Errorf("%w: product %d has %d, requested %d", domain.ErrOutOfStock, id, product.Stock, qty)
		}
		return tx.Model(&domain.Product{}).
			Where("id = ?", id).
			Update("stock", gorm.Expr("stock - ?", qty)).Error
	})
	if err != nil {
		if errors.Is(lockCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Warn(ctx, "product_repository.reserve_stock lock timeout", "product_id", id)
			return domain.ErrLockTimeout
		}
		return err
	}
	return nil
}

// ReleaseStock 实现 domain.ProductRepository.ReleaseStock
func (r *productRepositoryImpl) ReleaseStock(ctx context.Context, id uint, qty int) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	err := r.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		var product domain.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProductNotFound
			}
			return fmt.Errorf("lock product row: %w", err)
		}
		return tx.Model(&domain.Product{}).
			Where("id = ?", id).
			Update("stock", gorm.Expr("stock + ?", qty)).Error
	})
	if err != nil {
		if errors.Is(lockCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Warn(ctx, "product_repository.release_stock lock timeout", "product_id", id)
			return domain.ErrLockTimeout
		}
		return err
	}
	return nil
}

// Delete 实现 domain.ProductRepository.Delete
func (r *productRepositoryImpl) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Product{}, id).Error; err != nil {
		logger.Error(ctx, "product_repository.delete failed", "product_id", id, "error", err)
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
