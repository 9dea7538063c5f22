// Package catalogclient 把商品目录的应用服务适配成订单上下文的端口。
package catalogclient

import (
	"context"

	catalogapp "github.com/fajarrafsan02-bit/tokweb/internal/catalog/application"
	orderapp "github.com/fajarrafsan02-bit/tokweb/internal/order/application"
)

// Adapter 同进程适配器
// 订单上下文只依赖自己的端口定义，不直接 import 商品目录的领域
type Adapter struct {
	cmd   *catalogapp.CatalogCommandService
	query *catalogapp.CatalogQueryService
}

// New 创建适配器
func New(cmd *catalogapp.CatalogCommandService, query *catalogapp.CatalogQueryService) *Adapter {
	return &Adapter{cmd: cmd, query: query}
}

// GetProduct 实现 application.ProductReader
func (a *Adapter) GetProduct(ctx context.Context, productID uint) (*orderapp.ProductInfo, error) {
	product, err := a.query.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &orderapp.ProductInfo{
		ID:     product.ID,
		Name:   product.Name,
		Price:  product.Price,
		Active: product.Active,
		Stock:  product.Stock,
	}, nil
}

// ReserveStock 实现 domain.StockReserver
func (a *Adapter) ReserveStock(ctx context.Context, productID uint, qty int) error {
	return a.cmd.ReserveStock(ctx, productID, qty)
}

// ReleaseStock 实现 domain.StockReserver
func (a *Adapter) ReleaseStock(ctx context.Context, productID uint, qty int) error {
	return a.cmd.ReleaseStock(ctx, productID, qty)
}
