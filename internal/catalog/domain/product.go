// Package domain 包含商品目录的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductCategory 商品类目
type ProductCategory string

const (
	CategoryCincin   ProductCategory = "CINCIN"   // 戒指
	CategoryGelang   ProductCategory = "GELANG"   // 手镯
	CategoryKalung   ProductCategory = "KALUNG"   // 项链
	CategoryBatangan ProductCategory = "BATANGAN" // 金条
)

// 领域错误
var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is inactive")
	ErrOutOfStock      = errors.New("insufficient stock")
	ErrLockTimeout     = errors.New("stock lock wait timed out")
)

// 校验上限
var (
	maxWeightGrams   = decimal.NewFromInt(10_000)
	maxMarkupPercent = decimal.NewFromInt(1_000)
)

// Product 商品实体
// Price 是派生字段，由最新金价重算，业务侧不可直接改写
type Product struct {
	gorm.Model
	Name        string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Category    ProductCategory `gorm:"column:category;type:varchar(20);index;not null" json:"category"`
	// 克重
	Weight decimal.Decimal `gorm:"column:weight;type:decimal(10,3);not null" json:"weight"`
	// 成色（24/22/18）
	Purity int `gorm:"column:purity;not null" json:"purity"`
	// 工费加价百分比
	MarkupPercent decimal.Decimal `gorm:"column:markup_percent;type:decimal(10,2);not null;default:0" json:"markup_percent"`
	// 当前售价（派生）
	Price decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	// 库存
	Stock int `gorm:"column:stock;not null;default:0" json:"stock"`
	// 库存告警线
	MinStock int `gorm:"column:min_stock;not null;default:0" json:"min_stock"`
	// 是否上架
	Active   bool   `gorm:"column:active;index;not null;default:true" json:"active"`
	ImageURL string `gorm:"column:image_url;type:varchar(512)" json:"image_url"`
}

func (Product) TableName() string { return "products" }

// Validate 商品规则校验
func (p *Product) Validate() error {
	if p.Name == "" {
		return errors.New("product name is required")
	}
	switch p.Category {
	case CategoryCincin, CategoryGelang, CategoryKalung, CategoryBatangan:
	default:
		return fmt.Errorf("invalid category %q", p.Category)
	}
	if !p.Weight.IsPositive() || p.Weight.GreaterThan(maxWeightGrams) {
		return fmt.Errorf("weight must be in (0, %s] grams", maxWeightGrams)
	}
	switch p.Purity {
	case 24, 22, 18:
	default:
		return fmt.Errorf("purity must be one of 24, 22, 18, got %d", p.Purity)
	}
	if p.MarkupPercent.IsNegative() || p.MarkupPercent.GreaterThan(maxMarkupPercent) {
		return fmt.Errorf("markup percent must be in [0, %s]", maxMarkupPercent)
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	if p.MinStock < 0 {
		return errors.New("min stock must not be negative")
	}
	return nil
}

// IsLowStock 库存是否低于告警线
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 保存商品（新建或整体更新）
	Save(ctx context.Context, product *Product) error
	// 按 ID 获取
	Get(ctx context.Context, id uint) (*Product, error)
	// 商品列表
	List(ctx context.Context, category ProductCategory, activeOnly bool, limit, offset int) ([]*Product, int64, error)
	// 全部上架商品 ID
	ListActiveIDs(ctx context.Context) ([]uint, error)
	// 仅更新价格
	UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) error
	// 行锁内扣减库存，库存不足返回 ErrOutOfStock
	ReserveStock(ctx context.Context, id uint, qty int) error
	// 行锁内归还库存
	ReleaseStock(ctx context.Context, id uint, qty int) error
	// 删除商品（软删除）
	Delete(ctx context.Context, id uint) error
}
