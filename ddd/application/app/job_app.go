package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"compress-service/ddd/application/cqe"
	"compress-service/ddd/application/dto"
	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/port"
	"compress-service/ddd/domain/repo"
	"compress-service/ddd/domain/service"
	"compress-service/ddd/domain/vo"
	"compress-service/ddd/infrastructure/queue"
	"compress-service/ddd/infrastructure/worker"
	"compress-service/pkg/errno"
	"compress-service/pkg/logger"
)

const bytesPerMB = 1024 * 1024

// JobApp 压缩任务生命周期
type JobApp interface {
	// Submit 创建任务并异步获取源文件
	Submit(ctx context.Context, cmd *cqe.SubmitJobCmd) (*dto.JobDTO, error)
	// Decide 手动选择压缩目标
	Decide(ctx context.Context, jobID string, decision vo.Decision) (*dto.DecisionResultDTO, error)
	// DecideText 解析用户输入后选择压缩目标
	DecideText(ctx context.Context, cmd *cqe.DecideCmd) (*dto.DecisionResultDTO, error)
	// Cancel 取消任务
	Cancel(ctx context.Context, cmd *cqe.CancelCmd) (*dto.JobDTO, error)
	// Get 查询任务，已结束的任务从墓碑或历史中查询
	Get(ctx context.Context, jobID string) (*dto.JobDTO, error)
	// List 列出进行中的任务
	List(ctx context.Context, ownerID string) (*dto.JobListDTO, error)
	// History 查询已结束任务的历史记录
	History(ctx context.Context, ownerID string, limit int) (*dto.JobListDTO, error)
	// Stats 统计信息
	Stats(ctx context.Context) *dto.StatsDTO
	// HandleTerminal 任务进入终态后的收尾，由工作器回调
	HandleTerminal(ctx context.Context, job *entity.Job)
	// AttachWorker 关联工作器用于统计
	AttachWorker(w worker.CompressionWorker)
	// Shutdown 中止进行中的获取
	Shutdown()
}

// JobAppOptions 生命周期参数
type JobAppOptions struct {
	DecisionTimeout time.Duration
	DefaultDecision vo.Decision
}

type jobAppImpl struct {
	registry *service.JobRegistry
	timer    *service.DecisionTimer
	canceler *service.CancellationController
	queue    queue.JobQueue
	fetcher  gateway.Fetcher
	notifier gateway.Notifier
	history  repo.JobHistoryRepository
	opts     JobAppOptions

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	fetches map[string]context.CancelFunc
	worker  worker.CompressionWorker
}

// NewJobApp history 可以为 nil，此时不写历史记录
func NewJobApp(
	registry *service.JobRegistry,
	jobQueue queue.JobQueue,
	fetcher gateway.Fetcher,
	notifier gateway.Notifier,
	history repo.JobHistoryRepository,
	opts JobAppOptions,
) JobApp {
	if opts.DecisionTimeout <= 0 {
		opts.DecisionTimeout = 60 * time.Second
	}
	if err := opts.DefaultDecision.Validate(); err != nil {
		opts.DefaultDecision = vo.Decision{Kind: vo.DecisionFixedQuality, Tier: vo.QualityMedium}
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	a := &jobAppImpl{
		registry:   registry,
		timer:      service.NewDecisionTimer(registry),
		queue:      jobQueue,
		fetcher:    fetcher,
		notifier:   notifier,
		history:    history,
		opts:       opts,
		baseCtx:    baseCtx,
		baseCancel: cancel,
		fetches:    make(map[string]context.CancelFunc),
	}
	a.canceler = service.NewCancellationController(registry, a.timer, a.HandleTerminal)
	return a
}

func (a *jobAppImpl) Submit(ctx context.Context, cmd *cqe.SubmitJobCmd) (*dto.JobDTO, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	job, err := a.registry.Create(cmd.OwnerID, cmd.SourceRef)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithCancel(a.baseCtx)
	a.mu.Lock()
	a.fetches[job.ID()] = cancel
	a.mu.Unlock()

	logger.Info("job submitted", map[string]interface{}{"job_id": job.ID(), "owner_id": job.OwnerID(), "source": job.SourceRef()})
	a.notify(ctx, job, vo.JobStateFetching, "Downloading video...")
	go a.runFetch(fetchCtx, job)
	return dto.NewJobDTO(job), nil
}

// runFetch 获取完成后进入 AwaitingDecision 并启动决策定时器
func (a *jobAppImpl) runFetch(ctx context.Context, submitted *entity.Job) {
	jobID := submitted.ID()
	defer a.abortFetch(jobID)

	res, err := a.fetcher.Fetch(ctx, jobID, submitted.SourceRef(), func(p port.TransferProgress) {
		// 取消后不再报告进度
		if ctx.Err() != nil {
			return
		}
		a.notifyProgress(ctx, submitted, vo.JobStateFetching, FetchProgressText(p))
	})
	if err != nil {
		a.failFetching(jobID, "fetch failed: "+err.Error())
		return
	}

	job, err := a.registry.TransitionWith(jobID, vo.States(vo.JobStateFetching), vo.JobStateAwaitingDecision, func(j *entity.Job) error {
		return j.RecordFetch(res.LocalPath, res.DurationSeconds)
	})
	if err != nil {
		// 获取期间被取消，文件还没有归属任务
		service.RemoveFile(res.LocalPath)
		if errors.Is(err, errno.ErrInvalidDuration) {
			a.failFetching(jobID, "fetch failed: "+err.Error())
		}
		return
	}

	if !a.timer.Arm(jobID, a.opts.DecisionTimeout, a.onDecisionTimeout) {
		return
	}
	a.notify(ctx, job, vo.JobStateAwaitingDecision, fmt.Sprintf(
		"Video received (%.0fs). Choose quality high/medium/low or a target size in MB. Defaulting to %s in %s.",
		job.DurationSeconds(), a.opts.DefaultDecision, a.opts.DecisionTimeout))
}

func (a *jobAppImpl) failFetching(jobID, detail string) {
	job, err := a.registry.TransitionWith(jobID, vo.States(vo.JobStateFetching), vo.JobStateFailed, func(j *entity.Job) error {
		j.SetDetail(detail)
		return nil
	})
	if err != nil {
		return
	}
	logger.Warn("fetch failed", map[string]interface{}{"job_id": jobID, "detail": detail})
	a.HandleTerminal(a.baseCtx, job)
}

func (a *jobAppImpl) abortFetch(jobID string) {
	a.mu.Lock()
	cancel, ok := a.fetches[jobID]
	delete(a.fetches, jobID)
	a.mu.Unlock()
	if ok {
		cancel()
	}
}

func (a *jobAppImpl) Decide(ctx context.Context, jobID string, decision vo.Decision) (*dto.DecisionResultDTO, error) {
	if jobID == "" {
		return nil, errno.ErrJobIDRequired
	}
	if err := decision.Validate(); err != nil {
		return nil, err
	}
	job, err := a.enqueue(ctx, jobID, decision)
	if err != nil {
		return nil, err
	}
	return &dto.DecisionResultDTO{
		JobID:    job.ID(),
		State:    job.State().String(),
		Decision: decision.String(),
		Position: job.Position(),
	}, nil
}

func (a *jobAppImpl) DecideText(ctx context.Context, cmd *cqe.DecideCmd) (*dto.DecisionResultDTO, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	decision, err := vo.ParseDecision(cmd.Decision)
	if err != nil {
		// 输入无效时任务保持等待，定时器继续计时
		return nil, err
	}
	return a.Decide(ctx, cmd.JobID, decision)
}

// enqueue 先预占队列位置，再做 AwaitingDecision -> Queued 的守卫转换。
// 队列满时任务保持 AwaitingDecision；手动决策与超时只有一个能成功。
func (a *jobAppImpl) enqueue(ctx context.Context, jobID string, decision vo.Decision) (*entity.Job, error) {
	if err := a.checkAwaiting(jobID); err != nil {
		return nil, err
	}

	slot, err := a.queue.Reserve()
	if err != nil {
		return nil, err
	}
	job, err := a.registry.TransitionWith(jobID, vo.States(vo.JobStateAwaitingDecision), vo.JobStateQueued, func(j *entity.Job) error {
		return j.ApplyDecision(decision)
	})
	if err != nil {
		slot.Release()
		if errors.Is(err, errno.ErrJobNotFound) || errors.Is(err, errno.ErrTransitionRejected) {
			return nil, errno.NewBizError(errno.ErrDecisionNotApplicable, err)
		}
		return nil, err
	}

	position, err := slot.Commit(jobID)
	if err != nil {
		// 队列在预占后被关闭
		failed, terr := a.registry.TransitionWith(jobID, vo.States(vo.JobStateQueued), vo.JobStateFailed, func(j *entity.Job) error {
			j.SetDetail("queue unavailable: " + err.Error())
			return nil
		})
		if terr == nil {
			a.HandleTerminal(ctx, failed)
		}
		return nil, err
	}

	if updated, uerr := a.registry.Update(jobID, func(j *entity.Job) { j.SetPosition(position) }); uerr == nil {
		job = updated
	} else {
		// 已被工作器取走或取消
		job.SetPosition(position)
	}
	logger.Info("job queued", map[string]interface{}{"job_id": jobID, "decision": decision.String(), "position": position})
	a.notify(ctx, job, vo.JobStateQueued, fmt.Sprintf("Queued (%s), position %d", decision, position))
	return job, nil
}

func (a *jobAppImpl) checkAwaiting(jobID string) error {
	job, err := a.registry.Get(jobID)
	if err != nil {
		if _, ok := a.registry.Outcome(jobID); ok {
			return errno.Errorf(errno.ErrDecisionNotApplicable, "job %s already finished", jobID)
		}
		return err
	}
	if job.State() != vo.JobStateAwaitingDecision {
		return errno.Errorf(errno.ErrDecisionNotApplicable, "job %s is %s", jobID, job.State())
	}
	return nil
}

// onDecisionTimeout 超时后使用默认决策；队列满时重新计时
func (a *jobAppImpl) onDecisionTimeout(jobID string) {
	ctx := a.baseCtx
	_, err := a.enqueue(ctx, jobID, a.opts.DefaultDecision)
	if err == nil {
		return
	}
	if errors.Is(err, errno.ErrQueueFull) {
		if a.timer.Arm(jobID, a.opts.DecisionTimeout, a.onDecisionTimeout) {
			if job, gerr := a.registry.Get(jobID); gerr == nil {
				a.notify(ctx, job, vo.JobStateAwaitingDecision,
					fmt.Sprintf("Queue is full, retrying in %s", a.opts.DecisionTimeout))
			}
		}
		return
	}
	logger.Debug("decision timeout ignored", map[string]interface{}{"job_id": jobID, "reason": err.Error()})
}

func (a *jobAppImpl) Cancel(ctx context.Context, cmd *cqe.CancelCmd) (*dto.JobDTO, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	job, err := a.canceler.Cancel(ctx, cmd.JobID, cmd.Reason)
	if err != nil {
		return nil, err
	}
	a.abortFetch(cmd.JobID)
	logger.Info("job cancelled", map[string]interface{}{"job_id": job.ID(), "owner_id": job.OwnerID()})
	return dto.NewJobDTO(job), nil
}

func (a *jobAppImpl) Get(ctx context.Context, jobID string) (*dto.JobDTO, error) {
	if jobID == "" {
		return nil, errno.ErrJobIDRequired
	}
	job, err := a.registry.Get(jobID)
	if err == nil {
		return dto.NewJobDTO(job), nil
	}
	if a.history != nil {
		if h, herr := a.history.FindByJobID(ctx, jobID); herr == nil {
			return dto.NewJobDTOFromHistory(h), nil
		}
	}
	if o, ok := a.registry.Outcome(jobID); ok {
		return dto.NewJobDTOFromOutcome(o), nil
	}
	return nil, err
}

func (a *jobAppImpl) List(_ context.Context, ownerID string) (*dto.JobListDTO, error) {
	jobs := a.registry.List(ownerID)
	out := &dto.JobListDTO{Jobs: make([]*dto.JobDTO, 0, len(jobs)), Total: len(jobs)}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, dto.NewJobDTO(j))
	}
	return out, nil
}

func (a *jobAppImpl) History(ctx context.Context, ownerID string, limit int) (*dto.JobListDTO, error) {
	if ownerID == "" {
		return nil, errno.ErrOwnerIDRequired
	}
	out := &dto.JobListDTO{Jobs: []*dto.JobDTO{}}
	if a.history == nil {
		return out, nil
	}
	records, err := a.history.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	for _, h := range records {
		out.Jobs = append(out.Jobs, dto.NewJobDTOFromHistory(h))
	}
	out.Total = len(out.Jobs)
	return out, nil
}

func (a *jobAppImpl) Stats(_ context.Context) *dto.StatsDTO {
	st := &dto.StatsDTO{
		Registry: a.registry.Stats(),
		Queue:    a.queue.GetMetrics(),
	}
	a.mu.Lock()
	w := a.worker
	a.mu.Unlock()
	if w != nil {
		ws := w.GetStats()
		st.Worker = &ws
	}
	return st
}

func (a *jobAppImpl) AttachWorker(w worker.CompressionWorker) {
	a.mu.Lock()
	a.worker = w
	a.mu.Unlock()
}

// HandleTerminal 每个终态任务：一条通知、一条历史记录、一次移除
func (a *jobAppImpl) HandleTerminal(ctx context.Context, job *entity.Job) {
	if job == nil || !job.State().IsTerminal() {
		return
	}
	a.notify(ctx, job, job.State(), TerminalText(job))

	if a.history != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := a.history.Save(saveCtx, entity.NewJobHistory(job)); err != nil {
			logger.Error("save job history failed", map[string]interface{}{"job_id": job.ID(), "error": err.Error()})
		}
		cancel()
	}

	if !a.registry.Remove(job.ID()) {
		logger.Debug("job already removed", map[string]interface{}{"job_id": job.ID()})
	}
}

// FetchProgressText 下载进度消息，包含速度和剩余时间
func FetchProgressText(p port.TransferProgress) string {
	speed := humanize.IBytes(uint64(p.BytesPerSecond())) + "/s"
	if pct := p.Percent(); pct >= 0 {
		text := fmt.Sprintf("Downloading... %d%% of %s (%s", pct, humanize.IBytes(uint64(p.Total)), speed)
		if eta := p.ETA(); eta > 0 {
			text += ", ETA " + eta.Round(time.Second).String()
		}
		return text + ")"
	}
	return fmt.Sprintf("Downloading... %s (%s)", humanize.IBytes(uint64(p.Current)), speed)
}

// TerminalText 终态通知内容
func TerminalText(job *entity.Job) string {
	switch job.State() {
	case vo.JobStateDone:
		final := float64(job.FinalSizeBytes()) / bytesPerMB
		decision, _ := job.Decision()
		if decision.IsTargetSize() {
			return fmt.Sprintf("Done! Target %.0f MB, final size %.2f MB. Published to %s",
				decision.TargetSizeMB, final, job.PublishedTo())
		}
		return fmt.Sprintf("Done! Quality %s, final size %.2f MB. Published to %s",
			decision.Tier, final, job.PublishedTo())
	case vo.JobStateCancelled:
		if job.Detail() != "" {
			return "Cancelled: " + job.Detail()
		}
		return "Cancelled"
	default:
		return "Failed: " + job.Detail()
	}
}

func (a *jobAppImpl) Shutdown() {
	a.baseCancel()
}

func (a *jobAppImpl) notify(ctx context.Context, job *entity.Job, state vo.JobState, text string) {
	a.send(ctx, job, state, text, false)
}

// notifyProgress 可被限流的进度消息
func (a *jobAppImpl) notifyProgress(ctx context.Context, job *entity.Job, state vo.JobState, text string) {
	a.send(ctx, job, state, text, true)
}

func (a *jobAppImpl) send(ctx context.Context, job *entity.Job, state vo.JobState, text string, progress bool) {
	if a.notifier == nil {
		return
	}
	a.notifier.Notify(ctx, gateway.Notification{
		JobID:    job.ID(),
		OwnerID:  job.OwnerID(),
		State:    state,
		Text:     text,
		Progress: progress,
		Time:     time.Now(),
	})
}
