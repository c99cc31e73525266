package convertor

import (
	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/vo"
	"compress-service/ddd/infrastructure/database/po"
)

// JobHistoryConvertor 任务历史转换器
type JobHistoryConvertor struct{}

// NewJobHistoryConvertor 创建任务历史转换器
func NewJobHistoryConvertor() *JobHistoryConvertor {
	return &JobHistoryConvertor{}
}

// ToPO 将Entity转换为PO
func (c *JobHistoryConvertor) ToPO(h *entity.JobHistory) *po.JobRecord {
	return &po.JobRecord{
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
		FinishedAt:      h.FinishedAt,
	}
}

// ToEntity 将PO转换为Entity
func (c *JobHistoryConvertor) ToEntity(r *po.JobRecord) *entity.JobHistory {
	return &entity.JobHistory{
		JobID:           r.JobID,
		OwnerID:         r.OwnerID,
		SourceRef:       r.SourceRef,
		State:           vo.JobState(r.State),
		Decision:        r.Decision,
		DurationSeconds: r.DurationSeconds,
		FinalSizeBytes:  r.FinalSizeBytes,
		PublishedTo:     r.PublishedTo,
		Detail:          r.Detail,
		CreatedAt:       r.CreatedAt,
		FinishedAt:      r.FinishedAt,
	}
}
