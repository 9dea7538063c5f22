package domain

import (
	"testing"
	"time"

	goldprice "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduct() *Product {
	return &Product{
		Name:          "Cincin Emas Polos",
		Category:      CategoryCincin,
		Weight:        decimal.NewFromFloat(2.5),
		Purity:        22,
		MarkupPercent: decimal.NewFromInt(15),
		Stock:         10,
		MinStock:      2,
		Active:        true,
	}
}

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Product)
		wantErr bool
	}{
		{"valid", func(p *Product) {}, false},
		{"empty name", func(p *Product) { p.Name = "" }, true},
		{"unknown category", func(p *Product) { p.Category = "PERHIASAN" }, true},
		{"zero weight", func(p *Product) { p.Weight = decimal.Zero }, true},
		{"negative weight", func(p *Product) { p.Weight = decimal.NewFromInt(-1) }, true},
		{"weight above cap", func(p *Product) { p.Weight = decimal.NewFromInt(10_001) }, true},
		{"weight at cap", func(p *Product) { p.Weight = decimal.NewFromInt(10_000) }, false},
		{"invalid purity", func(p *Product) { p.Purity = 21 }, true},
		{"negative markup", func(p *Product) { p.MarkupPercent = decimal.NewFromInt(-1) }, true},
		{"markup above cap", func(p *Product) { p.MarkupPercent = decimal.NewFromInt(1_001) }, true},
		{"zero markup", func(p *Product) { p.MarkupPercent = decimal.Zero }, false},
		{"negative stock", func(p *Product) { p.Stock = -1 }, true},
		{"negative min stock", func(p *Product) { p.MinStock = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsLowStock(t *testing.T) {
	p := validProduct()
	p.Stock = 3
	p.MinStock = 2
	assert.False(t, p.IsLowStock())

	p.Stock = 2
	assert.True(t, p.IsLowStock())

	p.Stock = 0
	assert.True(t, p.IsLowStock())
}

func TestDerivePrice(t *testing.T) {
	rate, err := goldprice.NewGoldRateFromSpot(decimal.NewFromInt(1_500_000), goldprice.RateSourceSystem, time.Now())
	require.NoError(t, err)
	// 卖价 24K=1_600_000 22K=1_400_000 18K=1_200_000

	tests := []struct {
		name   string
		weight decimal.Decimal
		purity int
		markup decimal.Decimal
		want   int64
	}{
		// 1_400_000 × 2 × 1.10 = 3_080_000 → 分档 100_000 → 3_100_000
		{"22k with markup", decimal.NewFromInt(2), 22, decimal.NewFromInt(10), 3_100_000},
		// 1_600_000 × 1 = 1_600_000，已是整档
		{"24k no markup", decimal.NewFromInt(1), 24, decimal.Zero, 1_600_000},
		// 1_200_000 × 0.5 = 600_000 → 分档 10_000 → 600_000
		{"18k half gram", decimal.NewFromFloat(0.5), 18, decimal.Zero, 600_000},
		// 1_600_000 × 0.1 = 160_000 → 分档 10_000 → 160_000
		{"24k tenth gram", decimal.NewFromFloat(0.1), 24, decimal.Zero, 160_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DerivePrice(tt.weight, tt.purity, tt.markup, rate)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestDerivePriceUnknownPurity(t *testing.T) {
	rate, err := goldprice.NewGoldRateFromSpot(decimal.NewFromInt(1_500_000), goldprice.RateSourceSystem, time.Now())
	require.NoError(t, err)

	_, err = DerivePrice(decimal.NewFromInt(1), 21, decimal.Zero, rate)
	assert.Error(t, err)
}
