package application

import (
	"context"
	"testing"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestPopulatesAndServesFromCache(t *testing.T) {
	svc, repo, _, _ := newIngestFixture(decimal.NewFromInt(1_500_000))
	ctx := context.Background()

	ingested, err := svc.IngestManual(ctx, decimal.NewFromInt(1_500_000))
	require.NoError(t, err)

	rateCache := newFakeCache()
	query := NewQueryService(repo, rateCache, 5*time.Minute)

	first, err := query.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ingested.ID, first.ID)

	// 清空仓储后再查，命中缓存说明第二次没有回源
	repo.mu.Lock()
	repo.rates = nil
	repo.mu.Unlock()

	second, err := query.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ingested.ID, second.ID)
	assert.True(t, second.SellPrice24k.Equal(ingested.SellPrice24k))
}

func TestLatestWithoutSnapshot(t *testing.T) {
	query := NewQueryService(newFakeRateRepository(), newFakeCache(), time.Minute)

	_, err := query.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	query := NewQueryService(newFakeRateRepository(), newFakeCache(), time.Minute)

	now := time.Now()
	_, _, err := query.History(context.Background(), now, now.Add(-time.Hour), 1, 20)
	assert.Error(t, err)
}

func TestCompareWithYesterday(t *testing.T) {
	repo := newFakeRateRepository()
	yesterday := &domain.GoldRate{
		SellPrice24k: decimal.NewFromInt(1_500_000),
		EffectiveAt:  time.Now().AddDate(0, 0, -1),
	}
	require.NoError(t, repo.Save(context.Background(), yesterday))
	today := &domain.GoldRate{
		SellPrice24k: decimal.NewFromInt(1_600_000),
		EffectiveAt:  time.Now(),
	}
	require.NoError(t, repo.Save(context.Background(), today))

	query := NewQueryService(repo, newFakeCache(), time.Minute)
	cmp, err := query.CompareWithYesterday(context.Background())
	require.NoError(t, err)

	assert.Equal(t, today.ID, cmp.Today.ID)
	require.NotNil(t, cmp.Yesterday)
	assert.Equal(t, yesterday.ID, cmp.Yesterday.ID)
	assert.Equal(t, domain.ChangeDirectionIncrease, cmp.Direction)
}

func TestCompareWithYesterdayMissingBaseline(t *testing.T) {
	repo := newFakeRateRepository()
	require.NoError(t, repo.Save(context.Background(), &domain.GoldRate{
		SellPrice24k: decimal.NewFromInt(1_600_000),
		EffectiveAt:  time.Now(),
	}))

	query := NewQueryService(repo, newFakeCache(), time.Minute)
	cmp, err := query.CompareWithYesterday(context.Background())
	require.NoError(t, err)

	assert.Nil(t, cmp.Yesterday)
	assert.Equal(t, domain.ChangeDirectionStable, cmp.Direction)
}
