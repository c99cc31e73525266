package persistence

import (
	"context"

	"gorm.io/gorm"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/repo"
	"compress-service/ddd/infrastructure/database/convertor"
	"compress-service/ddd/infrastructure/database/dao"
	"compress-service/pkg/errno"
)

type jobHistoryRepositoryImpl struct {
	dao       *dao.JobRecordDAO
	convertor *convertor.JobHistoryConvertor
}

// NewJobHistoryRepository 创建任务历史仓储
func NewJobHistoryRepository(db *gorm.DB) repo.JobHistoryRepository {
	return &jobHistoryRepositoryImpl{
		dao:       dao.NewJobRecordDAO(db),
		convertor: convertor.NewJobHistoryConvertor(),
	}
}

func (r *jobHistoryRepositoryImpl) Save(ctx context.Context, history *entity.JobHistory) error {
	if err := r.dao.Create(ctx, r.convertor.ToPO(history)); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	return nil
}

func (r *jobHistoryRepositoryImpl) FindByJobID(ctx context.Context, jobID string) (*entity.JobHistory, error) {
	record, err := r.dao.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if record == nil {
		return nil, errno.Errorf(errno.ErrJobNotFound, "job %s", jobID)
	}
	return r.convertor.ToEntity(record), nil
}

func (r *jobHistoryRepositoryImpl) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.JobHistory, error) {
	records, err := r.dao.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	out := make([]*entity.JobHistory, 0, len(records))
	for _, rec := range records {
		out = append(out, r.convertor.ToEntity(rec))
	}
	return out, nil
}
