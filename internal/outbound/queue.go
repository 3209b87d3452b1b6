package outbound

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

var (
	// ErrQueueFull 队列已满
	ErrQueueFull = errors.New("outbound: queue full")
	// ErrStopped worker 已停止
	ErrStopped = errors.New("outbound: worker stopped")
)

// Request 一条已编码、待发送的指令
type Request struct {
	ID         string
	Command    z21.Command
	Frame      []byte
	Priority   int
	EnqueuedAt time.Time

	seq  uint64
	done chan error // 可为 nil；发送结果写入后关闭
}

type requestHeap []*Request

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *requestHeap) Push(x any)   { *h = append(*h, x.(*Request)) }
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return r
}

// Queue 有界优先队列；同优先级先进先出
type Queue struct {
	mu      sync.Mutex
	items   requestHeap
	cap     int
	seq     uint64
	closed  bool
	notifyC chan struct{}
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{cap: capacity, notifyC: make(chan struct{}, 1)}
}

// Push 入队；队列满时紧急指令挤掉最低优先级的一条
func (q *Queue) Push(r *Request) (evicted *Request, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrStopped
	}
	if len(q.items) >= q.cap {
		if r.Priority != PriorityEmergency {
			return nil, ErrQueueFull
		}
		evicted = q.removeLowest()
		if evicted == nil {
			return nil, ErrQueueFull
		}
	}
	q.seq++
	r.seq = q.seq
	heap.Push(&q.items, r)

	select {
	case q.notifyC <- struct{}{}:
	default:
	}
	return evicted, nil
}

// removeLowest 移除优先级最低（同级中最晚入队）的非紧急请求
func (q *Queue) removeLowest() *Request {
	idx := -1
	for i, it := range q.items {
		if it.Priority == PriorityEmergency {
			continue
		}
		if idx < 0 || it.Priority > q.items[idx].Priority ||
			(it.Priority == q.items[idx].Priority && it.seq > q.items[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	return heap.Remove(&q.items, idx).(*Request)
}

// Pop 取出最高优先级请求；空队列返回 nil
func (q *Queue) Pop() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(&q.items).(*Request)
}

// Len 当前排队数量
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Notify 有新请求入队时可读
func (q *Queue) Notify() <-chan struct{} { return q.notifyC }

// Close 关闭队列并返回剩余请求
func (q *Queue) Close() []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := make([]*Request, 0, len(q.items))
	for len(q.items) > 0 {
		rest = append(rest, heap.Pop(&q.items).(*Request))
	}
	return rest
}
