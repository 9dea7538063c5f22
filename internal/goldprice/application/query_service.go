package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/utils"
)

// QueryService 金价查询服务
// 最新快照走 Redis 旁路缓存，历史与变动记录直查 MySQL
type QueryService struct {
	repo     domain.GoldRateRepository
	cache    RateCache
	cacheTTL time.Duration
}

// NewQueryService 创建金价查询服务
func NewQueryService(repo domain.GoldRateRepository, rateCache RateCache, cacheTTL time.Duration) *QueryService {
	return &QueryService{
		repo:     repo,
		cache:    rateCache,
		cacheTTL: cacheTTL,
	}
}

// Latest 最新金价快照
func (s *QueryService) Latest(ctx context.Context) (*domain.GoldRate, error) {
	var cached domain.GoldRate
	found, err := s.cache.GetJSON(ctx, latestRateCacheKey, &cached)
	if err != nil {
		logger.Warn(ctx, "read rate cache failed", "error", err)
	}
	if found {
		return &cached, nil
	}

	rate, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, latestRateCacheKey, rate, s.cacheTTL); err != nil {
		logger.Warn(ctx, "write rate cache failed", "error", err)
	}
	return rate, nil
}

// History 按时间范围查询历史快照
func (s *QueryService) History(ctx context.Context, from, to time.Time, page, pageSize int) ([]*domain.GoldRate, *utils.Pagination, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.After(to) {
		return nil, nil, fmt.Errorf("invalid range: from %s after to %s", from, to)
	}

	p := utils.NewPagination(page, pageSize, 0)
	rates, total, err := s.repo.ListByRange(ctx, from, to, p.Limit(), p.Offset())
	if err != nil {
		return nil, nil, err
	}
	return rates, utils.NewPagination(page, pageSize, total), nil
}

// Comparison 今昨对比
type Comparison struct {
	Today     *domain.GoldRate       `json:"today"`
	Yesterday *domain.GoldRate       `json:"yesterday"`
	Direction domain.ChangeDirection `json:"direction"`
}

// CompareWithYesterday 对比当前价与昨日收盘价
func (s *QueryService) CompareWithYesterday(ctx context.Context) (*Comparison, error) {
	today, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}

	startOfDay := time.Date(today.EffectiveAt.Year(), today.EffectiveAt.Month(), today.EffectiveAt.Day(), 0, 0, 0, 0, today.EffectiveAt.Location())
	yesterday, err := s.repo.LatestBefore(ctx, startOfDay)
	if err != nil {
		if errors.Is(err, domain.ErrRateUnavailable) {
			return &Comparison{Today: today, Direction: domain.ChangeDirectionStable}, nil
		}
		return nil, err
	}

	return &Comparison{
		Today:     today,
		Yesterday: yesterday,
		Direction: domain.DirectionOf(yesterday.SellPrice24k, today.SellPrice24k),
	}, nil
}

// RecentChanges 最近的价格变动记录
func (s *QueryService) RecentChanges(ctx context.Context, limit int) ([]*domain.GoldRateChange, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListChanges(ctx, limit)
}
