package transport

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 基于 Token Bucket 的下行节流器
// 指令站处理能力有限，突发的驾驶指令需要排队发出
type RateLimiter struct {
	limiter      *rate.Limiter
	ratePerSec   float64
	burst        int
	allowedCount atomic.Int64
	waitedCount  atomic.Int64
}

// NewRateLimiter ratePerSec<=0 时不限速
func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(limit, burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Wait 等待令牌；ctx 取消时返回错误
func (l *RateLimiter) Wait(ctx context.Context) error {
	if !l.limiter.Allow() {
		l.waitedCount.Add(1)
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	l.allowedCount.Add(1)
	return nil
}

// Stats 获取统计信息
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowedCount.Load(),
		WaitedTotal:   l.waitedCount.Load(),
	}
}

// RateLimiterStats 节流统计
type RateLimiterStats struct {
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
	AllowedTotal  int64   `json:"allowed_total"`
	WaitedTotal   int64   `json:"waited_total"`
}
