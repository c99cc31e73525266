package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"compress-service/ddd/domain/gateway"
	"compress-service/pkg/logger"
)

const deliverTimeout = 3 * time.Second

// deliverCtx 通知不随调用方取消，单次投递有超时
func deliverCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
}

// LogNotifier 将通知写入日志
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n gateway.Notification) {
	logger.Info("notify", map[string]interface{}{
		"job_id":   n.JobID,
		"owner_id": n.OwnerID,
		"state":    n.State.String(),
		"text":     n.Text,
		"progress": n.Progress,
	})
}

// Fanout 依次投递给多个通知器
type Fanout []gateway.Notifier

func (f Fanout) Notify(ctx context.Context, n gateway.Notification) {
	for _, notifier := range f {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Throttled 限制每个任务进度消息的频率，状态变化消息总是投递
type Throttled struct {
	next     gateway.Notifier
	interval time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottled interval 为同一任务两条进度消息的最小间隔
func NewThrottled(next gateway.Notifier, interval time.Duration) *Throttled {
	return &Throttled{next: next, interval: interval, limiters: make(map[string]*rate.Limiter)}
}

func (t *Throttled) Notify(ctx context.Context, n gateway.Notification) {
	if n.State.IsTerminal() {
		t.mu.Lock()
		delete(t.limiters, n.JobID)
		t.mu.Unlock()
		t.next.Notify(ctx, n)
		return
	}
	if n.Progress && t.interval > 0 && !t.limiter(n.JobID).Allow() {
		return
	}
	t.next.Notify(ctx, n)
}

func (t *Throttled) limiter(jobID string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[jobID]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[jobID] = l
	}
	return l
}
