package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  int64
	}{
		{"below thousand rounds to ten", 999, 1_000},
		{"exactly thousand stays", 1_000, 1_000},
		{"below ten thousand rounds to hundred", 1_250, 1_300},
		{"below hundred thousand rounds to thousand", 87_400, 87_000},
		{"below million rounds to ten thousand", 187_672, 190_000},
		{"million and above rounds to hundred thousand", 1_887_672, 1_900_000},
		{"small value", 14, 10},
		{"half step rounds up", 15, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundPrice(decimal.NewFromInt(tt.input))
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)),
				"RoundPrice(%d) = %s, want %d", tt.input, got, tt.want)
		})
	}
}

func TestRoundPriceNonPositive(t *testing.T) {
	assert.True(t, RoundPrice(decimal.Zero).IsZero())
	assert.True(t, RoundPrice(decimal.NewFromInt(-500)).IsZero())
}

func TestNewGoldRateFromSpot(t *testing.T) {
	spot := decimal.NewFromInt(1_500_000)
	rate, err := NewGoldRateFromSpot(spot, RateSourceSystem, time.Now())
	require.NoError(t, err)

	// 24K 卖价：1_500_000 × 1.05 = 1_575_000 → 1_600_000
	assert.True(t, rate.SellPrice24k.Equal(decimal.NewFromInt(1_600_000)), "got %s", rate.SellPrice24k)
	// 24K 回购：1_500_000 × 0.95 = 1_425_000 → 1_400_000
	assert.True(t, rate.BuyPrice24k.Equal(decimal.NewFromInt(1_400_000)), "got %s", rate.BuyPrice24k)
	// 22K 卖价：1_500_000 × 22/24 × 1.05 = 1_443_750 → 1_400_000
	assert.True(t, rate.SellPrice22k.Equal(decimal.NewFromInt(1_400_000)), "got %s", rate.SellPrice22k)
	// 18K 卖价：1_500_000 × 18/24 × 1.05 = 1_181_250 → 1_200_000
	assert.True(t, rate.SellPrice18k.Equal(decimal.NewFromInt(1_200_000)), "got %s", rate.SellPrice18k)

	assert.Equal(t, RateSourceSystem, rate.Source)
}

func TestNewGoldRateFromSpotOrderingAcrossTiers(t *testing.T) {
	rate, err := NewGoldRateFromSpot(decimal.NewFromInt(1_234_567), RateSourceManual, time.Now())
	require.NoError(t, err)

	assert.True(t, rate.SellPrice24k.GreaterThanOrEqual(rate.SellPrice22k))
	assert.True(t, rate.SellPrice22k.GreaterThanOrEqual(rate.SellPrice18k))
	assert.True(t, rate.SellPrice24k.GreaterThan(rate.BuyPrice24k))
}

func TestNewGoldRateFromSpotRejectsNonPositive(t *testing.T) {
	_, err := NewGoldRateFromSpot(decimal.Zero, RateSourceSystem, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewGoldRateFromSpot(decimal.NewFromInt(-10), RateSourceSystem, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestSellPriceFor(t *testing.T) {
	rate := &GoldRate{
		SellPrice24k: decimal.NewFromInt(1_600_000),
		SellPrice22k: decimal.NewFromInt(1_400_000),
		SellPrice18k: decimal.NewFromInt(1_200_000),
	}

	p24, err := rate.SellPriceFor(24)
	require.NoError(t, err)
	assert.True(t, p24.Equal(decimal.NewFromInt(1_600_000)))

	p18, err := rate.SellPriceFor(18)
	require.NoError(t, err)
	assert.True(t, p18.Equal(decimal.NewFromInt(1_200_000)))

	_, err = rate.SellPriceFor(21)
	assert.Error(t, err)
}

func TestNewGoldRateChanges(t *testing.T) {
	previous := &GoldRate{
		SellPrice24k: decimal.NewFromInt(1_600_000),
		SellPrice22k: decimal.NewFromInt(1_400_000),
		SellPrice18k: decimal.NewFromInt(1_200_000),
	}
	current := &GoldRate{
		SellPrice24k: decimal.NewFromInt(1_700_000),
		SellPrice22k: decimal.NewFromInt(1_400_000), // 未变动，不应产生记录
		SellPrice18k: decimal.NewFromInt(1_100_000),
	}
	current.ID = 7

	changes := NewGoldRateChanges(previous, current)
	require.Len(t, changes, 2)

	assert.Equal(t, 24, changes[0].Purity)
	assert.Equal(t, ChangeDirectionIncrease, changes[0].Direction)
	assert.True(t, changes[0].ChangeAmount.Equal(decimal.NewFromInt(100_000)))
	assert.Equal(t, uint(7), changes[0].RateID)

	assert.Equal(t, 18, changes[1].Purity)
	assert.Equal(t, ChangeDirectionDecrease, changes[1].Direction)
}

func TestNewGoldRateChangesStable(t *testing.T) {
	rate := &GoldRate{
		SellPrice24k: decimal.NewFromInt(1_600_000),
		SellPrice22k: decimal.NewFromInt(1_400_000),
		SellPrice18k: decimal.NewFromInt(1_200_000),
	}
	assert.Empty(t, NewGoldRateChanges(rate, rate))
}
