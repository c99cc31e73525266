package entity

import (
	"time"

	"compress-service/ddd/domain/vo"
)

// JobHistory 已结束任务的历史记录
type JobHistory struct {
	JobID           string
	OwnerID         string
	SourceRef       string
	State           vo.JobState
	Decision        string
	DurationSeconds float64
	FinalSizeBytes  int64
	PublishedTo     string
	Detail          string
	CreatedAt       time.Time
	FinishedAt      time.Time
}

// NewJobHistory 由终态任务生成历史记录
func NewJobHistory(job *Job) *JobHistory {
	h := &JobHistory{
		JobID:           job.ID(),
		OwnerID:         job.OwnerID(),
		SourceRef:       job.SourceRef(),
		State:           job.State(),
		DurationSeconds: job.DurationSeconds(),
		FinalSizeBytes:  job.FinalSizeBytes(),
		PublishedTo:     job.PublishedTo(),
		Detail:          job.Detail(),
		CreatedAt:       job.CreatedAt(),
		FinishedAt:      time.Now(),
	}
	if d, ok := job.Decision(); ok {
		h.Decision = d.String()
	}
	if job.FinishedAt() != nil {
		h.FinishedAt = *job.FinishedAt()
	}
	return h
}
