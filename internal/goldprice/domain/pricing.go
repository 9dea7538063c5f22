package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// 成色兑换比例与买卖价差
var (
	ratio22k = decimal.NewFromInt(22).Div(decimal.NewFromInt(24))
	ratio18k = decimal.NewFromInt(18).Div(decimal.NewFromInt(24))

	sellSpread = decimal.NewFromFloat(1.05)
	buySpread  = decimal.NewFromFloat(0.95)
)

// 取整档位，价格越高取整粒度越粗
var roundingTiers = []struct {
	below decimal.Decimal
	step  decimal.Decimal
}{
	{decimal.NewFromInt(1_000), decimal.NewFromInt(10)},
	{decimal.NewFromInt(10_000), decimal.NewFromInt(100)},
	{decimal.NewFromInt(100_000), decimal.NewFromInt(1_000)},
	{decimal.NewFromInt(1_000_000), decimal.NewFromInt(10_000)},
}

var topStep = decimal.NewFromInt(100_000)

// RoundPrice 金价分档就近取整
// 档位随价格量级增大：千以下取十，万以下取百，十万以下取千，百万以下取万，百万及以上取十万
func RoundPrice(price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	step := topStep
	for _, tier := range roundingTiers {
		if price.LessThan(tier.below) {
			step = tier.step
			break
		}
	}
	half := step.Div(decimal.NewFromInt(2))
	return price.Add(half).Div(step).Floor().Mul(step)
}

// NewGoldRateFromSpot 由 24K 克价推导全部档位快照
// 卖价上浮 5%，回购价下浮 5%，各档按成色比例折算后分档取整
func NewGoldRateFromSpot(spot24k decimal.Decimal, source RateSource, effectiveAt time.Time) (*GoldRate, error) {
	if !spot24k.IsPositive() {
		return nil, ErrInvalidRate
	}

	sell24k := RoundPrice(spot24k.Mul(sellSpread))
	buy24k := RoundPrice(spot24k.Mul(buySpread))

	return &GoldRate{
		SellPrice24k: sell24k,
		SellPrice22k: RoundPrice(spot24k.Mul(ratio22k).Mul(sellSpread)),
		SellPrice18k: RoundPrice(spot24k.Mul(ratio18k).Mul(sellSpread)),
		BuyPrice24k:  buy24k,
		BuyPrice22k:  RoundPrice(spot24k.Mul(ratio22k).Mul(buySpread)),
		BuyPrice18k:  RoundPrice(spot24k.Mul(ratio18k).Mul(buySpread)),
		Source:       source,
		EffectiveAt:  effectiveAt,
	}, nil
}
