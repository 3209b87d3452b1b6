package health

import (
	"context"
	"time"
)

// Status 组件状态；Degraded 表示网关仍能控制布局，但有部分能力受损
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity 用于取最差状态
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse 返回两者中更差的状态
func (s Status) Worse(o Status) Status {
	if o.severity() > s.severity() {
		return o
	}
	return s
}

// CheckResult 单个组件的检查结果
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 由链路、下行队列、状态存储、Redis 各自实现
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckFunc 以函数实现 Checker
type CheckFunc struct {
	Component string
	Fn        func(ctx context.Context) CheckResult
}

func (f CheckFunc) Name() string { return f.Component }

func (f CheckFunc) Check(ctx context.Context) CheckResult {
	start := time.Now()
	r := f.Fn(ctx)
	if r.Latency == 0 {
		r.Latency = time.Since(start)
	}
	return r
}
