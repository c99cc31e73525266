package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"compress-service/ddd/infrastructure/database/po"
	"compress-service/pkg/logger"
)

// JobRecordDAO 任务历史数据访问对象
type JobRecordDAO struct {
	db *gorm.DB
}

// NewJobRecordDAO 创建DAO实例
func NewJobRecordDAO(db *gorm.DB) *JobRecordDAO {
	return &JobRecordDAO{db: db}
}

// AutoMigrate 建表
func (d *JobRecordDAO) AutoMigrate() error {
	return d.db.AutoMigrate(&po.JobRecord{})
}

// Create 写入一条记录
func (d *JobRecordDAO) Create(ctx context.Context, record *po.JobRecord) error {
	if err := d.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Error("create job record failed", map[string]interface{}{"job_id": record.JobID, "error": err.Error()})
		return err
	}
	return nil
}

// FindByJobID 根据任务ID查询，不存在时返回 nil
func (d *JobRecordDAO) FindByJobID(ctx context.Context, jobID string) (*po.JobRecord, error) {
	var record po.JobRecord
	err := d.db.WithContext(ctx).Where("job_id = ?", jobID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByOwner 按结束时间倒序查询
func (d *JobRecordDAO) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*po.JobRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []*po.JobRecord
	err := d.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("finished_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
