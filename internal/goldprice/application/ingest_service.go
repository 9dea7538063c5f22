// Package application 实现金价上下文的应用服务
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
	"github.com/shopspring/decimal"
)

const latestRateCacheKey = "goldprice:latest"

// RateCache 最新价缓存端口，pkg/cache 的 RedisCache 即实现
type RateCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// IngestService 金价写入服务
// 同一进程内的抓取、手工录入串行执行，保证变动记录成对出现
type IngestService struct {
	mu        sync.Mutex
	repo      domain.GoldRateRepository
	provider  domain.RateProvider
	publisher domain.EventPublisher
	cache     RateCache
	metrics   *metrics.Metrics
}

// NewIngestService 创建金价写入服务
func NewIngestService(
	repo domain.GoldRateRepository,
	provider domain.RateProvider,
	publisher domain.EventPublisher,
	rateCache RateCache,
	m *metrics.Metrics,
) *IngestService {
	return &IngestService{
		repo:      repo,
		provider:  provider,
		publisher: publisher,
		cache:     rateCache,
		metrics:   m,
	}
}

// IngestFromProvider 从外部行情商拉取并落库
func (s *IngestService) IngestFromProvider(ctx context.Context) (*domain.GoldRate, error) {
	spot, err := s.provider.FetchSpot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch spot price: %w", err)
	}
	return s.ingest(ctx, spot, domain.RateSourceSystem)
}

// IngestManual 管理员手工录入 24K 克价
func (s *IngestService) IngestManual(ctx context.Context, spot24k decimal.Decimal) (*domain.GoldRate, error) {
	return s.ingest(ctx, spot24k, domain.RateSourceManual)
}

func (s *IngestService) ingest(ctx context.Context, spot24k decimal.Decimal, source domain.RateSource) (*domain.GoldRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate, err := domain.NewGoldRateFromSpot(spot24k, source, time.Now())
	if err != nil {
		return nil, err
	}

	previous, err := s.repo.Latest(ctx)
	if err != nil && !errors.Is(err, domain.ErrRateUnavailable) {
		return nil, fmt.Errorf("load previous rate: %w", err)
	}

	if err := s.repo.Save(ctx, rate); err != nil {
		return nil, fmt.Errorf("save gold rate: %w", err)
	}

	event := &domain.GoldRateChangedEvent{
		RateID:       rate.ID,
		SellPrice24k: rate.SellPrice24k,
		SellPrice22k: rate.SellPrice22k,
		SellPrice18k: rate.SellPrice18k,
		Source:       source,
		EffectiveAt:  rate.EffectiveAt,
		OccurredOn:   time.Now(),
	}

	if previous != nil {
		for _, change := range domain.NewGoldRateChanges(previous, rate) {
			if err := s.repo.SaveChange(ctx, change); err != nil {
				// 变动记录丢失不阻断快照本身
				logger.Error(ctx, "save rate change failed", "error", err, "rate_id", rate.ID, "purity", change.Purity)
			}
		}
		event.PreviousPrice = previous.SellPrice24k
		event.Direction = domain.DirectionOf(previous.SellPrice24k, rate.SellPrice24k)
	} else {
		event.Direction = domain.ChangeDirectionStable
	}

	// 失效缓存后再发事件，消费方查询不会读到旧价
	if err := s.cache.Delete(ctx, latestRateCacheKey); err != nil {
		logger.Warn(ctx, "invalidate rate cache failed", "error", err)
	}

	if err := s.publisher.PublishRateChanged(ctx, event); err != nil {
		// 事件丢失可由下次变动补偿，不回滚快照
		logger.Error(ctx, "publish rate changed event failed", "error", err, "rate_id", rate.ID)
	}

	s.metrics.RateIngestTotal.Inc()
	logger.Info(ctx, "gold rate ingested",
		"rate_id", rate.ID,
		"source", source,
		"sell_price_24k", rate.SellPrice24k.String(),
		"direction", event.Direction,
	)
	return rate, nil
}
