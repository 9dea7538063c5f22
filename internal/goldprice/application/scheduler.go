package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
)

// RateScheduler 负责按每日固定时刻抓取金价。
// 失败只记录日志，下一时刻重试；启动时若库里没有任何快照则立即抓一次。
type RateScheduler struct {
	ingest        *IngestService
	repo          domain.GoldRateRepository
	logger        *slog.Logger
	scheduleTimes []string // "HH:MM" 本地时间
}

func NewRateScheduler(
	ingest *IngestService,
	repo domain.GoldRateRepository,
	logger *slog.Logger,
	scheduleTimes []string,
) *RateScheduler {
	if len(scheduleTimes) == 0 {
		scheduleTimes = []string{"08:00", "12:00", "16:00"}
	}
	return &RateScheduler{
		ingest:        ingest,
		repo:          repo,
		logger:        logger,
		scheduleTimes: scheduleTimes,
	}
}

func (s *RateScheduler) Start(ctx context.Context) {
	s.logger.Info("Gold rate scheduler started", "schedule", s.scheduleTimes)

	if _, err := s.repo.Latest(ctx); errors.Is(err, domain.ErrRateUnavailable) {
		s.logger.Info("no gold rate found, fetching initial snapshot")
		s.run(ctx)
	}

	for {
		next, err := s.nextRun(time.Now())
		if err != nil {
			s.logger.Error("invalid schedule configuration", "error", err)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.run(ctx)
		}
	}
}

func (s *RateScheduler) run(ctx context.Context) {
	rate, err := s.ingest.IngestFromProvider(ctx)
	if err != nil {
		s.logger.Error("scheduled gold rate fetch failed", "error", err)
		return
	}
	s.logger.Info("scheduled gold rate fetch succeeded",
		"rate_id", rate.ID,
		"sell_price_24k", rate.SellPrice24k.String(),
	)
}

// nextRun 计算 now 之后最近的一个调度时刻
func (s *RateScheduler) nextRun(now time.Time) (time.Time, error) {
	var next time.Time
	for _, spec := range s.scheduleTimes {
		t, err := time.ParseInLocation("15:04", spec, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("parse schedule time %q: %w", spec, err)
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next, nil
}
