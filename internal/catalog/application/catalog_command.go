// Package application 实现商品目录的应用服务
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/fajarrafsan02-bit/tokweb/internal/catalog/domain"
	goldprice "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
	"github.com/shopspring/decimal"
)

// RateQuery 获取当前金价的端口，由金价上下文提供实现
type RateQuery interface {
	Latest(ctx context.Context) (*goldprice.GoldRate, error)
}

// CatalogCommandService 商品写服务
type CatalogCommandService struct {
	repo    domain.ProductRepository
	rates   RateQuery
	metrics *metrics.Metrics
}

// NewCatalogCommandService 创建商品写服务
func NewCatalogCommandService(repo domain.ProductRepository, rates RateQuery, m *metrics.Metrics) *CatalogCommandService {
	return &CatalogCommandService{repo: repo, rates: rates, metrics: m}
}

// CreateProductCommand 创建商品命令
type CreateProductCommand struct {
	Name          string
	Description   string
	Category      domain.ProductCategory
	Weight        decimal.Decimal
	Purity        int
	MarkupPercent decimal.Decimal
	Stock         int
	MinStock      int
	ImageURL      string
}

// CreateProduct 创建商品并按当前金价定价
func (s *CatalogCommandService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	product := &domain.Product{
		Name:          cmd.Name,
		Description:   cmd.Description,
		Category:      cmd.Category,
		Weight:        cmd.Weight,
		Purity:        cmd.Purity,
		MarkupPercent: cmd.MarkupPercent,
		Stock:         cmd.Stock,
		MinStock:      cmd.MinStock,
		Active:        true,
		ImageURL:      cmd.ImageURL,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	rate, err := s.rates.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gold rate for pricing: %w", err)
	}
	price, err := domain.DeriveProductPrice(product, rate)
	if err != nil {
		return nil, err
	}
	product.Price = price

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created",
		"product_id", product.ID,
		"category", product.Category,
		"price", product.Price.String(),
	)
	return product, nil
}

// UpdateProductCommand 更新商品命令
type UpdateProductCommand struct {
	ID            uint
	Name          string
	Description   string
	Category      domain.ProductCategory
	Weight        decimal.Decimal
	Purity        int
	MarkupPercent decimal.Decimal
	MinStock      int
	Active        *bool
	ImageURL      string
}

// UpdateProduct 更新商品，克重/成色/工费变动时重新定价
func (s *CatalogCommandService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	product, err := s.repo.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	repriceNeeded := !product.Weight.Equal(cmd.Weight) ||
		product.Purity != cmd.Purity ||
		!product.MarkupPercent.Equal(cmd.MarkupPercent)

	product.Name = cmd.Name
	product.Description = cmd.Description
	product.Category = cmd.Category
	product.Weight = cmd.Weight
	product.Purity = cmd.Purity
	product.MarkupPercent = cmd.MarkupPercent
	product.MinStock = cmd.MinStock
	product.ImageURL = cmd.ImageURL
	if cmd.Active != nil {
		product.Active = *cmd.Active
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if repriceNeeded {
		rate, err := s.rates.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("load gold rate for pricing: %w", err)
		}
		price, err := domain.DeriveProductPrice(product, rate)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// AddStock 手工加库存
func (s *CatalogCommandService) AddStock(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	return s.repo.ReleaseStock(ctx, productID, qty)
}

// DeleteProduct 删除商品
func (s *CatalogCommandService) DeleteProduct(ctx context.Context, productID uint) error {
	return s.repo.Delete(ctx, productID)
}

// RepriceAll 金价变动后全量重定价
// 逐个商品独立更新，单个失败记日志继续，缺口由下一轮行情修复
func (s *CatalogCommandService) RepriceAll(ctx context.Context, rate *goldprice.GoldRate) error {
	ids, err := s.repo.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active products: %w", err)
	}

	var failed int
	for _, id := range ids {
		if err := s.repriceOne(ctx, id, rate); err != nil {
			failed++
			logger.Error(ctx, "reprice product failed", "product_id", id, "error", err)
			continue
		}
		s.metrics.ProductRepriceTotal.Inc()
	}

	logger.Info(ctx, "catalog repriced",
		"rate_id", rate.ID,
		"total", len(ids),
		"failed", failed,
	)
	if failed > 0 {
		return fmt.Errorf("repriced with %d failures out of %d products", failed, len(ids))
	}
	return nil
}

func (s *CatalogCommandService) repriceOne(ctx context.Context, id uint, rate *goldprice.GoldRate) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	price, err := domain.DeriveProductPrice(product, rate)
	if err != nil {
		return err
	}
	if product.Price.Equal(price) {
		return nil
	}
	return s.repo.UpdatePrice(ctx, id, price)
}

// ReserveStock 为订单占用库存
func (s *CatalogCommandService) ReserveStock(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if err := s.repo.ReserveStock(ctx, productID, qty); err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			s.metrics.StockConflictsTotal.Inc()
		}
		return err
	}
	return nil
}

// ReleaseStock 归还订单占用的库存
func (s *CatalogCommandService) ReleaseStock(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	return s.repo.ReleaseStock(ctx, productID, qty)
}
