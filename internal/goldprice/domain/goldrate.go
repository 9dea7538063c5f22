// Package domain 包含金价服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateSource 金价来源
type RateSource string

const (
	RateSourceSystem RateSource = "SYSTEM" // 定时任务从外部行情商拉取
	RateSourceManual RateSource = "MANUAL" // 管理员手工录入
)

// ChangeDirection 价格变动方向
type ChangeDirection string

const (
	ChangeDirectionIncrease ChangeDirection = "INCREASE"
	ChangeDirectionDecrease ChangeDirection = "DECREASE"
	ChangeDirectionStable   ChangeDirection = "STABLE"
)

// 领域错误
var (
	// ErrRateUnavailable 当前没有任何可用金价
	ErrRateUnavailable = errors.New("gold rate unavailable")
	// ErrRateOutOfBand 行情商返回的价格超出合理区间
	ErrRateOutOfBand = errors.New("gold rate out of sanity band")
	// ErrInvalidRate 非法金价（零或负数）
	ErrInvalidRate = errors.New("gold rate must be positive")
)

// GoldRate 金价快照
// 每次抓取或手工录入生成一条记录，卖价/买价按成色分档
type GoldRate struct {
	gorm.Model
	// 24K 克卖价（IDR）
	SellPrice24k decimal.Decimal `gorm:"column:sell_price_24k;type:decimal(20,2);not null" json:"sell_price_24k"`
	// 22K 克卖价
	SellPrice22k decimal.Decimal `gorm:"column:sell_price_22k;type:decimal(20,2);not null" json:"sell_price_22k"`
	// 18K 克卖价
	SellPrice18k decimal.Decimal `gorm:"column:sell_price_18k;type:decimal(20,2);not null" json:"sell_price_18k"`
	// 24K 克回购价
	BuyPrice24k decimal.Decimal `gorm:"column:buy_price_24k;type:decimal(20,2);not null" json:"buy_price_24k"`
	// 22K 克回购价
	BuyPrice22k decimal.Decimal `gorm:"column:buy_price_22k;type:decimal(20,2);not null" json:"buy_price_22k"`
	// 18K 克回购价
	BuyPrice18k decimal.Decimal `gorm:"column:buy_price_18k;type:decimal(20,2);not null" json:"buy_price_18k"`
	// 来源
	Source RateSource `gorm:"column:source;type:varchar(20);index;not null" json:"source"`
	// 生效时间
	EffectiveAt time.Time `gorm:"column:effective_at;index;not null" json:"effective_at"`
}

func (GoldRate) TableName() string { return "gold_rates" }

// SellPriceFor 按成色取克卖价
func (r *GoldRate) SellPriceFor(purity int) (decimal.Decimal, error) {
	switch purity {
	case 24:
		return r.SellPrice24k, nil
	case 22:
		return r.SellPrice22k, nil
	case 18:
		return r.SellPrice18k, nil
	default:
		return decimal.Zero, errors.New("unsupported purity")
	}
}

// BuyPriceFor 按成色取克回购价
func (r *GoldRate) BuyPriceFor(purity int) (decimal.Decimal, error) {
	switch purity {
	case 24:
		return r.BuyPrice24k, nil
	case 22:
		return r.BuyPrice22k, nil
	case 18:
		return r.BuyPrice18k, nil
	default:
		return decimal.Zero, errors.New("unsupported purity")
	}
}

// GoldRateChange 金价变动记录
// 相邻两次快照之间每个成色档卖价的差值与方向，价格未动的档不记
type GoldRateChange struct {
	gorm.Model
	// 新快照 ID
	RateID uint `gorm:"column:rate_id;index;not null" json:"rate_id"`
	// 成色（24/22/18）
	Purity int `gorm:"column:purity;not null" json:"purity"`
	// 变动前克卖价
	PreviousPrice decimal.Decimal `gorm:"column:previous_price;type:decimal(20,2);not null" json:"previous_price"`
	// 变动后克卖价
	NewPrice decimal.Decimal `gorm:"column:new_price;type:decimal(20,2);not null" json:"new_price"`
	// 绝对差值
	ChangeAmount decimal.Decimal `gorm:"column:change_amount;type:decimal(20,2);not null" json:"change_amount"`
	// 百分比变动
	ChangePercent decimal.Decimal `gorm:"column:change_percent;type:decimal(10,4);not null" json:"change_percent"`
	// 方向
	Direction ChangeDirection `gorm:"column:direction;type:varchar(10);not null" json:"direction"`
}

func (GoldRateChange) TableName() string { return "gold_rate_changes" }

// DirectionOf 按差值符号判定方向
func DirectionOf(previous, current decimal.Decimal) ChangeDirection {
	switch current.Cmp(previous) {
	case 1:
		return ChangeDirectionIncrease
	case -1:
		return ChangeDirectionDecrease
	default:
		return ChangeDirectionStable
	}
}

// NewGoldRateChanges 比较新旧快照，为每个卖价发生变动的成色档生成一条记录
func NewGoldRateChanges(previous, current *GoldRate) []*GoldRateChange {
	tiers := []struct {
		purity   int
		old, new decimal.Decimal
	}{
		{24, previous.SellPrice24k, current.SellPrice24k},
		{22, previous.SellPrice22k, current.SellPrice22k},
		{18, previous.SellPrice18k, current.SellPrice18k},
	}

	var changes []*GoldRateChange
	for _, t := range tiers {
		diff := t.new.Sub(t.old)
		if diff.IsZero() {
			continue
		}
		change := &GoldRateChange{
			RateID:        current.ID,
			Purity:        t.purity,
			PreviousPrice: t.old,
			NewPrice:      t.new,
			ChangeAmount:  diff.Abs(),
			Direction:     DirectionOf(t.old, t.new),
		}
		if t.old.IsPositive() {
			change.ChangePercent = diff.Div(t.old).Mul(decimal.NewFromInt(100)).Round(4)
		}
		changes = append(changes, change)
	}
	return changes
}

// GoldRateRepository 金价仓储接口
type GoldRateRepository interface {
	// 保存快照
	Save(ctx context.Context, rate *GoldRate) error
	// 最新快照
	Latest(ctx context.Context) (*GoldRate, error)
	// 截至某时刻的最新快照
	LatestBefore(ctx context.Context, t time.Time) (*GoldRate, error)
	// 按时间范围查询历史
	ListByRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*GoldRate, int64, error)
	// 保存变动记录
	SaveChange(ctx context.Context, change *GoldRateChange) error
	// 最近 N 条变动记录
	ListChanges(ctx context.Context, limit int) ([]*GoldRateChange, error)
}

// RateProvider 外部行情商接口
type RateProvider interface {
	// FetchSpot 拉取当前 24K 克价（IDR/gram）
	FetchSpot(ctx context.Context) (decimal.Decimal, error)
}
