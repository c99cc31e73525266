package entity

import (
	"time"

	"github.com/google/uuid"

	"compress-service/ddd/domain/vo"
	"compress-service/pkg/errno"
)

// Job 压缩任务实体
type Job struct {
	id              string       // 任务ID
	ownerID         string       // 提交者
	sourceRef       string       // 源引用 (对象key或URL)
	sourcePath      string       // 本地源文件，终态时删除
	durationSeconds float64      // 时长，获取完成后不可变
	state           vo.JobState  // 当前状态
	decision        *vo.Decision // 压缩目标，只能设置一次
	resultPath      string       // 压缩产物，编码成功后设置
	position        int          // 入队时的队列位置
	finalSizeBytes  int64        // 产物大小
	publishedTo     string       // 发布位置
	detail          string       // 失败或取消原因
	timerArmed      bool         // 是否有待触发的决策定时器
	createdAt       time.Time
	updatedAt       time.Time
	finishedAt      *time.Time
}

// NewJob 创建处于 Fetching 状态的任务
func NewJob(ownerID, sourceRef string) *Job {
	now := time.Now()
	return &Job{
		id:        uuid.NewString(),
		ownerID:   ownerID,
		sourceRef: sourceRef,
		state:     vo.JobStateFetching,
		createdAt: now,
		updatedAt: now,
	}
}

// Getters
func (j *Job) ID() string                { return j.id }
func (j *Job) OwnerID() string           { return j.ownerID }
func (j *Job) SourceRef() string         { return j.sourceRef }
func (j *Job) SourcePath() string        { return j.sourcePath }
func (j *Job) DurationSeconds() float64  { return j.durationSeconds }
func (j *Job) State() vo.JobState        { return j.state }
func (j *Job) ResultPath() string        { return j.resultPath }
func (j *Job) Position() int             { return j.position }
func (j *Job) FinalSizeBytes() int64     { return j.finalSizeBytes }
func (j *Job) PublishedTo() string       { return j.publishedTo }
func (j *Job) Detail() string            { return j.detail }
func (j *Job) TimerArmed() bool          { return j.timerArmed }
func (j *Job) CreatedAt() time.Time      { return j.createdAt }
func (j *Job) UpdatedAt() time.Time      { return j.updatedAt }
func (j *Job) FinishedAt() *time.Time    { return j.finishedAt }

// Decision 返回压缩目标，未决策时 ok=false
func (j *Job) Decision() (vo.Decision, bool) {
	if j.decision == nil {
		return vo.Decision{}, false
	}
	return *j.decision, true
}

// MoveTo 切换状态，非法转换返回错误
func (j *Job) MoveTo(target vo.JobState) error {
	if !j.state.CanTransitionTo(target) {
		return errno.Errorf(errno.ErrTransitionRejected, "%s -> %s", j.state, target)
	}
	now := time.Now()
	j.state = target
	j.updatedAt = now
	if target.IsTerminal() {
		j.finishedAt = &now
	}
	if target != vo.JobStateAwaitingDecision {
		j.timerArmed = false
	}
	return nil
}

// RecordFetch 记录获取结果，时长只能设置一次
func (j *Job) RecordFetch(path string, durationSeconds float64) error {
	if j.durationSeconds > 0 || j.sourcePath != "" {
		return errno.Errorf(errno.ErrTransitionRejected, "job %s already fetched", j.id)
	}
	if durationSeconds <= 0 {
		return errno.NewBizError(errno.ErrInvalidDuration, nil)
	}
	j.sourcePath = path
	j.durationSeconds = durationSeconds
	return nil
}

// ApplyDecision 设置压缩目标，只能设置一次
func (j *Job) ApplyDecision(d vo.Decision) error {
	if j.decision != nil {
		return errno.Errorf(errno.ErrDecisionNotApplicable, "job %s already decided %s", j.id, j.decision)
	}
	j.decision = &d
	return nil
}

// SetPosition 记录入队位置
func (j *Job) SetPosition(position int) { j.position = position }

// SetResultPath 编码成功后设置产物路径
func (j *Job) SetResultPath(path string) { j.resultPath = path }

// SetTimerArmed 由注册表维护
func (j *Job) SetTimerArmed(armed bool) { j.timerArmed = armed }

// RecordPublish 记录发布结果
func (j *Job) RecordPublish(location string, sizeBytes int64) {
	j.publishedTo = location
	j.finalSizeBytes = sizeBytes
}

// SetDetail 记录失败或取消原因
func (j *Job) SetDetail(detail string) { j.detail = detail }

// Clone 返回快照副本
func (j *Job) Clone() *Job {
	c := *j
	if j.decision != nil {
		d := *j.decision
		c.decision = &d
	}
	if j.finishedAt != nil {
		t := *j.finishedAt
		c.finishedAt = &t
	}
	return &c
}
