package dto

import (
	"time"

	"github.com/dustin/go-humanize"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/service"
	"compress-service/ddd/infrastructure/queue"
	"compress-service/ddd/infrastructure/worker"
)

// JobDTO 任务数据传输对象
type JobDTO struct {
	JobID           string     `json:"job_id"`
	OwnerID         string     `json:"owner_id"`
	SourceRef       string     `json:"source_ref,omitempty"`
	State           string     `json:"state"`
	Decision        string     `json:"decision,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	Position        int        `json:"position,omitempty"`
	TimerArmed      bool       `json:"timer_armed"`
	FinalSizeBytes  int64      `json:"final_size_bytes,omitempty"`
	FinalSize       string     `json:"final_size,omitempty"`
	PublishedTo     string     `json:"published_to,omitempty"`
	Detail          string     `json:"detail,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// NewJobDTO 由任务快照生成
func NewJobDTO(job *entity.Job) *JobDTO {
	d := &JobDTO{
		JobID:           job.ID(),
		OwnerID:         job.OwnerID(),
		SourceRef:       job.SourceRef(),
		State:           job.State().String(),
		DurationSeconds: job.DurationSeconds(),
		Position:        job.Position(),
		TimerArmed:      job.TimerArmed(),
		FinalSizeBytes:  job.FinalSizeBytes(),
		PublishedTo:     job.PublishedTo(),
		Detail:          job.Detail(),
		CreatedAt:       job.CreatedAt(),
		UpdatedAt:       job.UpdatedAt(),
		FinishedAt:      job.FinishedAt(),
	}
	if decision, ok := job.Decision(); ok {
		d.Decision = decision.String()
	}
	if d.FinalSizeBytes > 0 {
		d.FinalSize = humanize.IBytes(uint64(d.FinalSizeBytes))
	}
	return d
}

// NewJobDTOFromOutcome 已从注册表移除的任务只保留终态信息
func NewJobDTOFromOutcome(o service.Outcome) *JobDTO {
	finished := o.FinishedAt
	return &JobDTO{
		JobID:      o.JobID,
		OwnerID:    o.OwnerID,
		State:      o.State.String(),
		Detail:     o.Detail,
		FinishedAt: &finished,
	}
}

// NewJobDTOFromHistory 由历史记录生成
func NewJobDTOFromHistory(h *entity.JobHistory) *JobDTO {
	finished := h.FinishedAt
	d := &JobDTO{
		JobID:           h.JobID,
		OwnerID:         h.OwnerID,
		SourceRef:       h.SourceRef,
		State:           h.State.String(),
		Decision:        h.Decision,
		DurationSeconds: h.DurationSeconds,
		FinalSizeBytes:  h.FinalSizeBytes,
		PublishedTo:     h.PublishedTo,
		Detail:          h.Detail,
		CreatedAt:       h.CreatedAt,
		FinishedAt:      &finished,
	}
	if d.FinalSizeBytes > 0 {
		d.FinalSize = humanize.IBytes(uint64(d.FinalSizeBytes))
	}
	return d
}

// JobListDTO 任务列表
type JobListDTO struct {
	Jobs  []*JobDTO `json:"jobs"`
	Total int       `json:"total"`
}

// DecisionResultDTO 决策结果
type DecisionResultDTO struct {
	JobID    string `json:"job_id"`
	State    string `json:"state"`
	Decision string `json:"decision"`
	Position int    `json:"position"`
}

// StatsDTO 服务统计
type StatsDTO struct {
	Registry service.RegistryStats `json:"registry"`
	Queue    queue.QueueMetrics    `json:"queue"`
	Worker   *worker.WorkerStats   `json:"worker,omitempty"`
}
