package service

import (
	"sync/atomic"
	"time"
)

// DecisionTimer 每个任务一个单次、可取消的决策超时
type DecisionTimer struct {
	registry  *JobRegistry
	afterFunc func(time.Duration, func()) TimerHandle
}

// NewDecisionTimer 创建决策定时器
func NewDecisionTimer(registry *JobRegistry) *DecisionTimer {
	return &DecisionTimer{
		registry: registry,
		afterFunc: func(d time.Duration, f func()) TimerHandle {
			return time.AfterFunc(d, f)
		},
	}
}

// Arm 启动定时器并挂到任务上；任务不在 AwaitingDecision 时返回 false。
// onFire 只在挂载成功后才会执行。
func (t *DecisionTimer) Arm(jobID string, delay time.Duration, onFire func(jobID string)) bool {
	var attached atomic.Bool
	ready := make(chan struct{})
	h := t.afterFunc(delay, func() {
		<-ready
		if attached.Load() {
			onFire(jobID)
		}
	})
	ok := t.registry.AttachTimer(jobID, h)
	attached.Store(ok)
	close(ready)
	if !ok {
		h.Stop()
	}
	return ok
}

// Cancel 取消待触发的定时器，可重复调用
func (t *DecisionTimer) Cancel(jobID string) {
	if h := t.registry.DetachTimer(jobID); h != nil {
		h.Stop()
	}
}
