package queue

import (
	"context"
	"sync"

	"compress-service/pkg/errno"
)

// JobQueue 压缩任务队列接口，元素为任务ID
type JobQueue interface {
	// Reserve 预占一个位置，队列满时返回 ErrQueueFull
	Reserve() (*Reservation, error)

	// Submit 直接入队，返回队列位置(从1开始)
	Submit(jobID string) (int, error)

	// Dequeue 出队任务（阻塞）
	Dequeue(ctx context.Context) (string, error)

	// Size 获取队列大小
	Size() int

	// Capacity 队列容量
	Capacity() int

	// Close 关闭队列
	Close() error

	// IsClosed 检查队列是否已关闭
	IsClosed() bool

	// GetMetrics 获取队列指标
	GetMetrics() QueueMetrics
}

// MemoryJobQueue 基于内存的有界FIFO队列
type MemoryJobQueue struct {
	items     chan string
	capacity  int
	reserved  int
	closed    bool
	closedCh  chan struct{}
	mu        sync.Mutex
	metrics   *QueueMetrics
	metricsMu sync.Mutex
}

// QueueMetrics 队列指标
type QueueMetrics struct {
	EnqueueCount  uint64 `json:"enqueue_count"`
	DequeueCount  uint64 `json:"dequeue_count"`
	RejectedCount uint64 `json:"rejected_count"`
	MaxSize       int    `json:"max_size"`
	CurrentSize   int    `json:"current_size"`
	Reserved      int    `json:"reserved"`
}

// Reservation 预占的队列位置，必须 Commit 或 Release 一次
type Reservation struct {
	q    *MemoryJobQueue
	done bool
}

// NewMemoryJobQueue 创建内存任务队列
func NewMemoryJobQueue(capacity int) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 10 // 默认容量
	}
	return &MemoryJobQueue{
		items:    make(chan string, capacity),
		capacity: capacity,
		closedCh: make(chan struct{}),
		metrics:  &QueueMetrics{MaxSize: capacity},
	}
}

// Reserve 预占位置；已入队数与预占数之和不超过容量
func (q *MemoryJobQueue) Reserve() (*Reservation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, errno.ErrQueueClosed
	}
	if len(q.items)+q.reserved >= q.capacity {
		q.metricsMu.Lock()
		q.metrics.RejectedCount++
		q.metricsMu.Unlock()
		return nil, errno.Errorf(errno.ErrQueueFull, "capacity %d", q.capacity)
	}
	q.reserved++
	return &Reservation{q: q}, nil
}

// Commit 将任务放入预占的位置，返回队列位置
func (r *Reservation) Commit(jobID string) (int, error) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if r.done {
		return 0, errno.Errorf(errno.ErrInternalServer, "reservation already used")
	}
	r.done = true
	q.reserved--
	if q.closed {
		return 0, errno.ErrQueueClosed
	}

	select {
	case q.items <- jobID:
	default:
		return 0, errno.Errorf(errno.ErrQueueFull, "capacity %d", q.capacity)
	}
	q.metricsMu.Lock()
	q.metrics.EnqueueCount++
	q.metricsMu.Unlock()
	return len(q.items), nil
}

// Release 放弃预占，可重复调用
func (r *Reservation) Release() {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	q.reserved--
}

// Submit 入队任务
func (q *MemoryJobQueue) Submit(jobID string) (int, error) {
	res, err := q.Reserve()
	if err != nil {
		return 0, err
	}
	return res.Commit(jobID)
}

// Dequeue 出队任务（阻塞）
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-q.closedCh:
		return "", errno.ErrQueueClosed
	default:
	}

	select {
	case id := <-q.items:
		q.metricsMu.Lock()
		q.metrics.DequeueCount++
		q.metricsMu.Unlock()
		return id, nil
	case <-q.closedCh:
		return "", errno.ErrQueueClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Size 获取队列大小
func (q *MemoryJobQueue) Size() int {
	return len(q.items)
}

// Capacity 队列容量
func (q *MemoryJobQueue) Capacity() int {
	return q.capacity
}

// Close 关闭队列，阻塞中的 Dequeue 返回 ErrQueueClosed
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.closedCh)
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *MemoryJobQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// GetMetrics 获取队列指标
func (q *MemoryJobQueue) GetMetrics() QueueMetrics {
	q.mu.Lock()
	reserved := q.reserved
	q.mu.Unlock()

	q.metricsMu.Lock()
	defer q.metricsMu.Unlock()
	return QueueMetrics{
		EnqueueCount:  q.metrics.EnqueueCount,
		DequeueCount:  q.metrics.DequeueCount,
		RejectedCount: q.metrics.RejectedCount,
		MaxSize:       q.metrics.MaxSize,
		CurrentSize:   len(q.items),
		Reserved:      reserved,
	}
}
