package outbound

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/logging"
	"github.com/taoyao-code/z21-gateway/internal/metrics"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// Sender 将一个已编码的报文作为数据报发出
type Sender interface {
	Send(ctx context.Context, b []byte) error
}

// Worker 下行队列消费者：按优先级逐条发往指令站
type Worker struct {
	queue   *Queue
	sender  Sender
	logger  *zap.Logger
	metrics *metrics.AppMetrics
	running atomic.Bool

	// 统计
	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// New 创建 Worker
func New(sender Sender, queueSize int, logger *zap.Logger, m *metrics.AppMetrics) *Worker {
	return &Worker{
		queue:   NewQueue(queueSize),
		sender:  sender,
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

// Submit 编码并入队，不等待发送；参数非法时立即返回 *z21.ArgumentError
func (w *Worker) Submit(cmd z21.Command) (string, error) {
	r, err := w.enqueue(cmd, nil)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// SubmitWait 编码、入队并等待发送结果
func (w *Worker) SubmitWait(ctx context.Context, cmd z21.Command) (string, error) {
	done := make(chan error, 1)
	r, err := w.enqueue(cmd, done)
	if err != nil {
		return "", err
	}
	select {
	case err := <-done:
		return r.ID, err
	case <-ctx.Done():
		return r.ID, ctx.Err()
	}
}

func (w *Worker) enqueue(cmd z21.Command, done chan error) (*Request, error) {
	frame, err := z21.Encode(cmd)
	if err != nil {
		w.count(cmd, "invalid")
		return nil, err
	}
	r := &Request{
		ID:         uuid.New().String(),
		Command:    cmd,
		Frame:      frame,
		Priority:   CommandPriority(cmd),
		EnqueuedAt: time.Now(),
		done:       done,
	}
	evicted, err := w.queue.Push(r)
	if err != nil {
		w.count(cmd, "dropped")
		w.dropped.Add(1)
		return nil, err
	}
	if evicted != nil {
		w.dropped.Add(1)
		w.count(evicted.Command, "dropped")
		finish(evicted, ErrQueueFull)
		w.logger.Warn("queued command evicted by emergency command",
			zap.String("request_id", evicted.ID),
			zap.String("command", evicted.Command.Name()))
	}
	w.setDepth()
	return r, nil
}

// Run 阻塞消费队列直至 ctx 取消；退出时剩余请求以 ErrStopped 结束
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)
	w.logger.Info("outbound worker started")

	for {
		for r := w.queue.Pop(); r != nil; r = w.queue.Pop() {
			w.setDepth()
			w.process(ctx, r)
			if ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			for _, r := range w.queue.Close() {
				finish(r, ErrStopped)
			}
			w.setDepth()
			w.logger.Info("outbound worker stopped",
				zap.Int64("sent", w.sent.Load()),
				zap.Int64("failed", w.failed.Load()))
			return
		case <-w.queue.Notify():
		}
	}
}

func (w *Worker) process(ctx context.Context, r *Request) {
	if err := w.sender.Send(ctx, r.Frame); err != nil {
		w.failed.Add(1)
		w.count(r.Command, "error")
		w.logger.Error("send command failed",
			zap.String("request_id", r.ID),
			zap.String("command", r.Command.Name()),
			zap.Error(err))
		finish(r, fmt.Errorf("send %s: %w", r.Command.Name(), err))
		return
	}
	w.sent.Add(1)
	w.count(r.Command, "ok")
	w.logger.Debug("command sent",
		zap.String("request_id", r.ID),
		zap.String("command", r.Command.Name()),
		zap.Int("priority", r.Priority),
		zap.Duration("queued", time.Since(r.EnqueuedAt)))
	finish(r, nil)
}

// Running worker 是否在消费
func (w *Worker) Running() bool { return w.running.Load() }

// Len 当前排队数量
func (w *Worker) Len() int { return w.queue.Len() }

// Stats 统计信息
func (w *Worker) Stats() Stats {
	return Stats{
		Queued:  w.queue.Len(),
		Sent:    w.sent.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
	}
}

// Stats 下行统计
type Stats struct {
	Queued  int   `json:"queued"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

func (w *Worker) count(cmd z21.Command, result string) {
	if w.metrics == nil || cmd == nil {
		return
	}
	w.metrics.CommandsTotal.WithLabelValues(cmd.Name(), result).Inc()
}

func (w *Worker) setDepth() {
	if w.metrics != nil {
		w.metrics.QueueDepth.Set(float64(w.queue.Len()))
	}
}

func finish(r *Request, err error) {
	if r.done == nil {
		return
	}
	r.done <- err
	close(r.done)
}
