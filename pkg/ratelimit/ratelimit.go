// Package ratelimit 基于 Redis GCRA 的接口限流
// 配额按秒从配置读取，键按客户端维度拼前缀；Redis 故障时放行
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/pkg/config"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "goldshop:ratelimit:"

// Limiter 限流判定接口
type Limiter interface {
	// Allow 判定 key 的本次请求是否放行
	Allow(ctx context.Context, key string) (*Result, error)
}

// Result 单次判定结果
type Result struct {
	// 是否放行
	Allowed bool
	// 配额上限（突发）
	Limit int
	// 剩余配额
	Remaining int
	// 配额重置等待
	ResetAfter time.Duration
	// 拒绝后的重试等待
	RetryAfter time.Duration
}

// RedisLimiter 每秒 QPS、突发 Burst 的 Redis 限流器
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisLimiter 按配置创建限流器
func NewRedisLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *RedisLimiter {
	qps := cfg.QPS
	if qps <= 0 {
		qps = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = qps * 2
	}
	return &RedisLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit: redis_rate.Limit{
			Rate:   qps,
			Period: time.Second,
			Burst:  burst,
		},
	}
}

// Allow 判定 key 的本次请求是否放行
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	res, err := l.limiter.Allow(ctx, keyPrefix+key, l.limit)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      l.limit.Burst,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// GinMiddleware 按客户端 IP 限流
// enabled 为 false 时整条链路不判定；判定出错放行，限流不能把服务打挂
func GinMiddleware(limiter Limiter, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limit check failed, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": res.RetryAfter.String(),
			})
			return
		}

		c.Next()
	}
}
