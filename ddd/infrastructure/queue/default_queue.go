package queue

import (
	"sync"

	"compress-service/pkg/config"
)

var (
	queueOnce    sync.Once
	defaultQueue *MemoryJobQueue
)

// DefaultJobQueue 获取默认任务队列
func DefaultJobQueue() *MemoryJobQueue {
	queueOnce.Do(func() {
		capacity := 10
		if cfg := config.GetGlobalConfig(); cfg != nil && cfg.Compress.QueueCapacity > 0 {
			capacity = cfg.Compress.QueueCapacity
		}
		defaultQueue = NewMemoryJobQueue(capacity)
	})
	return defaultQueue
}

// CloseDefaultJobQueue 关闭默认任务队列
func CloseDefaultJobQueue() {
	if defaultQueue != nil {
		_ = defaultQueue.Close()
	}
}
