package repo

import (
	"context"

	"compress-service/ddd/domain/entity"
)

// JobHistoryRepository 任务历史仓储接口
type JobHistoryRepository interface {
	// Save 保存终态任务
	Save(ctx context.Context, history *entity.JobHistory) error

	// FindByJobID 根据任务ID查询
	FindByJobID(ctx context.Context, jobID string) (*entity.JobHistory, error)

	// ListByOwner 查询用户最近的任务
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.JobHistory, error)
}
