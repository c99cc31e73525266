package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/service"
	"compress-service/ddd/domain/vo"
	"compress-service/ddd/infrastructure/queue"
	"compress-service/pkg/errno"
	"compress-service/pkg/logger"
)

// CompressionWorker 压缩工作器接口
type CompressionWorker interface {
	// Name 后台任务名
	Name() string

	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs  uint64    `json:"processed_jobs"`
	SuccessfulJobs uint64    `json:"successful_jobs"`
	FailedJobs     uint64    `json:"failed_jobs"`
	SkippedJobs    uint64    `json:"skipped_jobs"`
	CurrentJobID   string    `json:"current_job_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	LastJobTime    time.Time `json:"last_job_time"`
}

// JobPipeline 单个任务的编码与发布
type JobPipeline interface {
	Execute(ctx context.Context, job *entity.Job) (gateway.PublishResult, error)
}

// TerminalHook 任务进入终态后调用一次
type TerminalHook func(ctx context.Context, job *entity.Job)

// compressionWorkerImpl 单协程顺序消费，同一时间只有一个编码在运行
type compressionWorkerImpl struct {
	id         string
	queue      queue.JobQueue
	registry   *service.JobRegistry
	pipeline   JobPipeline
	onTerminal TerminalHook
	running    bool
	cancel     context.CancelFunc
	stats      WorkerStats
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

// NewCompressionWorker 创建压缩工作器
func NewCompressionWorker(
	id string,
	jobQueue queue.JobQueue,
	registry *service.JobRegistry,
	pipeline JobPipeline,
	onTerminal TerminalHook,
) CompressionWorker {
	return &compressionWorkerImpl{
		id:         id,
		queue:      jobQueue,
		registry:   registry,
		pipeline:   pipeline,
		onTerminal: onTerminal,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (w *compressionWorkerImpl) Name() string { return w.id }

// Start 启动工作器
func (w *compressionWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	logger.Infof("Starting compression worker %s", w.id)
	w.wg.Add(1)
	go w.workerLoop(workerCtx)
	return nil
}

// Stop 停止工作器，正在运行的编码会随上下文取消而终止
func (w *compressionWorkerImpl) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	logger.Infof("Stopping compression worker %s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	// 等待协程结束，不能持有锁，循环中会更新统计
	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	logger.Infof("Compression worker %s stopped", w.id)
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *compressionWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *compressionWorkerImpl) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// workerLoop 工作器主循环
func (w *compressionWorkerImpl) workerLoop(ctx context.Context) {
	defer w.wg.Done()
	defer logger.Infof("Worker %s loop exited", w.id)

	for {
		jobID, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, errno.ErrQueueClosed) {
				return
			}
			logger.Warnf("Worker %s failed to dequeue job: %v", w.id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second): // 避免忙等待
			}
			continue
		}
		w.processJob(ctx, jobID)
	}
}

// processJob 处理单个任务，失败和 panic 都只影响当前任务
func (w *compressionWorkerImpl) processJob(ctx context.Context, jobID string) {
	job, err := w.registry.TransitionWith(jobID, vo.States(vo.JobStateQueued), vo.JobStateCompressing, nil)
	if err != nil {
		// 排队期间被取消是正常情况
		logger.Info("skip job", map[string]interface{}{"worker": w.id, "job_id": jobID, "reason": err.Error()})
		w.updateStats(func(stats *WorkerStats) { stats.SkippedJobs++ })
		return
	}

	w.updateStats(func(stats *WorkerStats) {
		stats.CurrentJobID = jobID
		stats.LastJobTime = time.Now()
	})
	defer w.updateStats(func(stats *WorkerStats) {
		stats.CurrentJobID = ""
		stats.ProcessedJobs++
	})

	defer func() {
		if r := recover(); r != nil {
			logger.Error("compression panic", map[string]interface{}{"worker": w.id, "job_id": jobID, "panic": fmt.Sprint(r)})
			w.finish(ctx, jobID, gateway.PublishResult{}, fmt.Errorf("internal error: %v", r))
		}
	}()

	logger.Info("compressing job", map[string]interface{}{"worker": w.id, "job_id": jobID, "owner_id": job.OwnerID()})
	res, err := w.pipeline.Execute(ctx, job)
	w.finish(ctx, jobID, res, err)
}

func (w *compressionWorkerImpl) finish(ctx context.Context, jobID string, res gateway.PublishResult, runErr error) {
	var (
		snap *entity.Job
		err  error
	)
	if runErr == nil {
		snap, err = w.registry.TransitionWith(jobID, vo.States(vo.JobStateCompressing), vo.JobStateDone, func(j *entity.Job) error {
			j.RecordPublish(res.Location, res.SizeBytes)
			return nil
		})
	} else {
		detail := runErr.Error()
		if ctx.Err() != nil {
			detail = "interrupted by shutdown: " + detail
		}
		snap, err = w.registry.TransitionWith(jobID, vo.States(vo.JobStateCompressing), vo.JobStateFailed, func(j *entity.Job) error {
			j.SetDetail(detail)
			return nil
		})
	}
	if err != nil {
		logger.Error("terminal transition rejected", map[string]interface{}{"worker": w.id, "job_id": jobID, "error": err.Error()})
		return
	}

	if runErr == nil {
		w.updateStats(func(stats *WorkerStats) { stats.SuccessfulJobs++ })
		logger.Info("job done", map[string]interface{}{"worker": w.id, "job_id": jobID, "location": res.Location})
	} else {
		w.updateStats(func(stats *WorkerStats) { stats.FailedJobs++ })
		logger.Warn("job failed", map[string]interface{}{"worker": w.id, "job_id": jobID, "error": runErr.Error()})
	}
	if w.onTerminal != nil {
		w.onTerminal(ctx, snap)
	}
}

// updateStats 更新统计信息
func (w *compressionWorkerImpl) updateStats(updateFunc func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updateFunc(&w.stats)
}
