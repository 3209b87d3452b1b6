package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/z21-gateway/internal/transport"
)

// LinkSource 指令站链路状态来源
type LinkSource interface {
	LastReceived() time.Time
	LastSent() time.Time
	LimiterStats() transport.RateLimiterStats
}

// QueueSource 下行队列状态来源
type QueueSource interface {
	Running() bool
	Len() int
}

// LinkChecker 指令站链路检查：依据最近一次收到数据报的时间
// 保活周期内应至少收到一次应答
type LinkChecker struct {
	link     LinkSource
	queue    QueueSource
	stale    time.Duration
	queueCap int
	started  time.Time
	now      func() time.Time
}

// NewLinkChecker stale 之前无上行视为降级，2*stale 视为不健康；queue 可为 nil
func NewLinkChecker(link LinkSource, queue QueueSource, stale time.Duration, queueCap int) *LinkChecker {
	if stale <= 0 {
		stale = time.Minute
	}
	return &LinkChecker{link: link, queue: queue, stale: stale, queueCap: queueCap, started: time.Now(), now: time.Now}
}

func (c *LinkChecker) Name() string { return "z21" }

func (c *LinkChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	now := c.now()
	details := map[string]any{}

	last := c.link.LastReceived()
	ref := last
	if last.IsZero() {
		// 启动后尚未收到应答，按启动时间计算
		ref = c.started
	} else {
		details["last_received"] = last
	}
	age := now.Sub(ref)
	details["silence"] = age.String()
	if sent := c.link.LastSent(); !sent.IsZero() {
		details["last_sent"] = sent
	}
	details["send_limiter"] = c.link.LimiterStats()

	status := StatusHealthy
	message := "ok"
	switch {
	case age > 2*c.stale:
		status = StatusUnhealthy
		message = fmt.Sprintf("no datagram from command station for %s", age.Truncate(time.Second))
	case age > c.stale:
		status = StatusDegraded
		message = "command station silent"
	}

	if c.queue != nil {
		depth := c.queue.Len()
		details["queue_depth"] = depth
		details["worker_running"] = c.queue.Running()
		if !c.queue.Running() {
			status = StatusUnhealthy
			message = "outbound worker not running"
		} else if c.queueCap > 0 && float64(depth) > 0.8*float64(c.queueCap) && status == StatusHealthy {
			status = StatusDegraded
			message = "outbound queue near capacity"
		}
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
