package application

import (
	"context"

	"github.com/fajarrafsan02-bit/tokweb/internal/catalog/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/utils"
)

// CatalogQueryService 商品读服务
type CatalogQueryService struct {
	repo domain.ProductRepository
}

// NewCatalogQueryService 创建商品读服务
func NewCatalogQueryService(repo domain.ProductRepository) *CatalogQueryService {
	return &CatalogQueryService{repo: repo}
}

// GetProduct 商品详情
func (s *CatalogQueryService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// ListProducts 商品列表
func (s *CatalogQueryService) ListProducts(ctx context.Context, category domain.ProductCategory, activeOnly bool, page, pageSize int) ([]*domain.Product, *utils.Pagination, error) {
	p := utils.NewPagination(page, pageSize, 0)
	products, total, err := s.repo.List(ctx, category, activeOnly, p.Limit(), p.Offset())
	if err != nil {
		return nil, nil, err
	}
	return products, utils.NewPagination(page, pageSize, total), nil
}
