package service

import (
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/vo"
	"compress-service/pkg/errno"
	"compress-service/pkg/logger"
)

// TimerHandle 可停止的定时器
type TimerHandle interface {
	Stop() bool
}

// Outcome 已结束任务的墓碑记录
type Outcome struct {
	JobID      string      `json:"job_id"`
	OwnerID    string      `json:"owner_id"`
	State      vo.JobState `json:"state"`
	Detail     string      `json:"detail,omitempty"`
	FinishedAt time.Time   `json:"finished_at"`
}

// RegistryStats 注册表统计
type RegistryStats struct {
	Live         int                 `json:"live"`
	ByState      map[vo.JobState]int `json:"by_state"`
	ActiveOwners int                 `json:"active_owners"`
	Finished     uint64              `json:"finished"`
}

type jobRecord struct {
	job   *entity.Job
	timer TimerHandle
}

// JobRegistry 任务注册表，状态的唯一来源。
// 所有状态变化都通过守卫转换完成，对外只返回快照。
type JobRegistry struct {
	mu       sync.Mutex
	jobs     map[string]*jobRecord
	owners   map[string]string // ownerID -> 非终态任务ID
	outcomes map[string]Outcome
	ring     []string
	next     int
	finished uint64
}

// NewJobRegistry 创建注册表，tombstoneSize 为保留的终态记录数
func NewJobRegistry(tombstoneSize int) *JobRegistry {
	if tombstoneSize <= 0 {
		tombstoneSize = 1024
	}
	return &JobRegistry{
		jobs:     make(map[string]*jobRecord),
		owners:   make(map[string]string),
		outcomes: make(map[string]Outcome),
		ring:     make([]string, tombstoneSize),
	}
}

// Create 创建任务，同一用户只能有一个未结束的任务
func (r *JobRegistry) Create(ownerID, sourceRef string) (*entity.Job, error) {
	if ownerID == "" {
		return nil, errno.ErrOwnerIDRequired
	}
	if sourceRef == "" {
		return nil, errno.ErrSourceRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.owners[ownerID]; ok {
		return nil, errno.Errorf(errno.ErrDuplicateActiveJob, "owner %s has job %s", ownerID, existing)
	}
	job := entity.NewJob(ownerID, sourceRef)
	r.jobs[job.ID()] = &jobRecord{job: job}
	r.owners[ownerID] = job.ID()
	return job.Clone(), nil
}

// Transition 守卫转换：当前状态不在 from 中、任务已结束或不存在时返回 false
func (r *JobRegistry) Transition(id string, from vo.StateSet, to vo.JobState) bool {
	_, err := r.TransitionWith(id, from, to, nil)
	return err == nil
}

// TransitionWith 守卫转换，同时在锁内应用字段修改。
// mutate 作用于副本，返回错误时记录保持不变。
func (r *JobRegistry) TransitionWith(id string, from vo.StateSet, to vo.JobState, mutate func(*entity.Job) error) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[id]
	if !ok {
		return nil, errno.Errorf(errno.ErrJobNotFound, "job %s", id)
	}
	cur := rec.job.State()
	if cur.IsTerminal() || !from.Contains(cur) {
		return nil, errno.Errorf(errno.ErrTransitionRejected, "job %s is %s", id, cur)
	}

	work := rec.job.Clone()
	if mutate != nil {
		if err := mutate(work); err != nil {
			return nil, err
		}
	}
	if err := work.MoveTo(to); err != nil {
		return nil, err
	}

	// 离开 AwaitingDecision 时定时器随之失效
	if cur == vo.JobStateAwaitingDecision && to != cur && rec.timer != nil {
		rec.timer.Stop()
		rec.timer = nil
	}
	rec.job = work

	if to.IsTerminal() {
		if r.owners[work.OwnerID()] == id {
			delete(r.owners, work.OwnerID())
		}
		r.recordOutcomeLocked(work)
	}
	return work.Clone(), nil
}

func (r *JobRegistry) recordOutcomeLocked(job *entity.Job) {
	if old := r.ring[r.next]; old != "" {
		delete(r.outcomes, old)
	}
	finishedAt := time.Now()
	if job.FinishedAt() != nil {
		finishedAt = *job.FinishedAt()
	}
	r.ring[r.next] = job.ID()
	r.next = (r.next + 1) % len(r.ring)
	r.outcomes[job.ID()] = Outcome{
		JobID:      job.ID(),
		OwnerID:    job.OwnerID(),
		State:      job.State(),
		Detail:     job.Detail(),
		FinishedAt: finishedAt,
	}
	r.finished++
}

// Update 修改非终态任务的字段，不改变状态
func (r *JobRegistry) Update(id string, mutate func(*entity.Job)) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok {
		return nil, errno.Errorf(errno.ErrJobNotFound, "job %s", id)
	}
	if rec.job.State().IsTerminal() {
		return nil, errno.Errorf(errno.ErrTransitionRejected, "job %s is %s", id, rec.job.State())
	}
	mutate(rec.job)
	return rec.job.Clone(), nil
}

// SetResult 记录编码产物路径
func (r *JobRegistry) SetResult(id, resultPath string) error {
	_, err := r.Update(id, func(j *entity.Job) { j.SetResultPath(resultPath) })
	return err
}

// AttachTimer 仅在 AwaitingDecision 时挂载定时器，已有的旧定时器会被停止
func (r *JobRegistry) AttachTimer(id string, h TimerHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.job.State() != vo.JobStateAwaitingDecision {
		return false
	}
	if rec.timer != nil && rec.timer != h {
		rec.timer.Stop()
	}
	rec.timer = h
	rec.job.SetTimerArmed(true)
	return true
}

// DetachTimer 卸下定时器并返回，由调用方停止
func (r *JobRegistry) DetachTimer(id string) TimerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.timer == nil {
		return nil
	}
	h := rec.timer
	rec.timer = nil
	rec.job.SetTimerArmed(false)
	return h
}

// Get 返回任务快照
func (r *JobRegistry) Get(id string) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok {
		return nil, errno.Errorf(errno.ErrJobNotFound, "job %s", id)
	}
	return rec.job.Clone(), nil
}

// Outcome 查询已结束任务
func (r *JobRegistry) Outcome(id string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[id]
	return o, ok
}

// List 按创建时间返回任务快照，ownerID 为空时返回全部
func (r *JobRegistry) List(ownerID string) []*entity.Job {
	r.mu.Lock()
	out := make([]*entity.Job, 0, len(r.jobs))
	for _, rec := range r.jobs {
		if ownerID == "" || rec.job.OwnerID() == ownerID {
			out = append(out, rec.job.Clone())
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt().Before(out[k].CreatedAt())
	})
	return out
}

// Stats 返回统计信息
func (r *JobRegistry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := RegistryStats{
		Live:         len(r.jobs),
		ByState:      make(map[vo.JobState]int),
		ActiveOwners: len(r.owners),
		Finished:     r.finished,
	}
	for _, rec := range r.jobs {
		st.ByState[rec.job.State()]++
	}
	return st
}

// Remove 移除已结束的任务并删除其文件。
// 记录在锁内摘除，文件只会被删除一次；文件不存在不视为错误。
func (r *JobRegistry) Remove(id string) bool {
	r.mu.Lock()
	rec, ok := r.jobs[id]
	if !ok || !rec.job.State().IsTerminal() {
		r.mu.Unlock()
		return false
	}
	delete(r.jobs, id)
	r.mu.Unlock()

	RemoveFile(rec.job.SourcePath())
	RemoveFile(rec.job.ResultPath())
	return true
}

// RemoveFile 删除文件，忽略不存在
func RemoveFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove file", map[string]interface{}{"path": path, "error": err.Error()})
	}
}
