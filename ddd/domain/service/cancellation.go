package service

import (
	"context"
	"errors"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/vo"
	"compress-service/pkg/errno"
)

// CancellationController 校验并执行取消请求。
// 只允许在 Compressing 之前取消，不会中断正在运行的编码。
type CancellationController struct {
	registry    *JobRegistry
	timer       *DecisionTimer
	onCancelled func(ctx context.Context, job *entity.Job)
}

// NewCancellationController onCancelled 在取消成功后调用一次，负责通知与清理
func NewCancellationController(registry *JobRegistry, timer *DecisionTimer, onCancelled func(ctx context.Context, job *entity.Job)) *CancellationController {
	return &CancellationController{registry: registry, timer: timer, onCancelled: onCancelled}
}

// Cancel 取消任务。已在编码或已结束的任务返回 ErrCancelNotApplicable
func (c *CancellationController) Cancel(ctx context.Context, jobID, reason string) (*entity.Job, error) {
	if reason == "" {
		reason = "cancelled by user"
	}
	job, err := c.registry.TransitionWith(jobID, vo.Cancellable, vo.JobStateCancelled, func(j *entity.Job) error {
		j.SetDetail(reason)
		return nil
	})
	if err != nil {
		if errors.Is(err, errno.ErrJobNotFound) {
			if o, ok := c.registry.Outcome(jobID); ok {
				return nil, errno.Errorf(errno.ErrCancelNotApplicable, "job %s already %s", jobID, o.State)
			}
			return nil, err
		}
		return nil, errno.NewBizError(errno.ErrCancelNotApplicable, err)
	}

	c.timer.Cancel(jobID)
	if c.onCancelled != nil {
		c.onCancelled(ctx, job)
	}
	return job, nil
}
