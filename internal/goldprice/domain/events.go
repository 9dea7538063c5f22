package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TopicGoldRateChanged 金价变动事件主题
const TopicGoldRateChanged = "gold.rate.changed"

// GoldRateChangedEvent 金价变动事件
// 下游（商品上下文）凭此触发全量重定价
type GoldRateChangedEvent struct {
	RateID        uint            `json:"rate_id"`
	SellPrice24k  decimal.Decimal `json:"sell_price_24k"`
	SellPrice22k  decimal.Decimal `json:"sell_price_22k"`
	SellPrice18k  decimal.Decimal `json:"sell_price_18k"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	Direction     ChangeDirection `json:"direction"`
	Source        RateSource      `json:"source"`
	EffectiveAt   time.Time       `json:"effective_at"`
	OccurredOn    time.Time       `json:"occurred_on"`
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	PublishRateChanged(ctx context.Context, event *GoldRateChangedEvent) error
}
