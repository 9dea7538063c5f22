package domain

import (
	goldprice "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DerivePrice 由金价快照推导商品售价
// 基价 = 对应成色克卖价 × 克重，加上工费百分比后分档取整
func DerivePrice(weight decimal.Decimal, purity int, markupPercent decimal.Decimal, rate *goldprice.GoldRate) (decimal.Decimal, error) {
	perGram, err := rate.SellPriceFor(purity)
	if err != nil {
		return decimal.Zero, err
	}
	base := perGram.Mul(weight)
	marked := base.Mul(hundred.Add(markupPercent)).Div(hundred)
	return goldprice.RoundPrice(marked), nil
}

// DeriveProductPrice 对商品实体求价
func DeriveProductPrice(p *Product, rate *goldprice.GoldRate) (decimal.Decimal, error) {
	return DerivePrice(p.Weight, p.Purity, p.MarkupPercent, rate)
}
