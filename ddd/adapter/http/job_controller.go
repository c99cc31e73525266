package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"compress-service/ddd/application/app"
	"compress-service/ddd/application/cqe"
	"compress-service/pkg/errno"
	"compress-service/pkg/middleware"
	"compress-service/pkg/restapi"
)

// JobController 压缩任务控制器
type JobController struct {
	jobApp app.JobApp
}

// NewJobController 创建压缩任务控制器
func NewJobController(jobApp app.JobApp) *JobController {
	return &JobController{jobApp: jobApp}
}

// SubmitJob 提交任务，owner 优先取 X-Owner-ID
func (c *JobController) SubmitJob(ctx *gin.Context) {
	var req cqe.SubmitJobCmd
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	if owner := middleware.OwnerID(ctx); owner != "" {
		req.OwnerID = owner
	}

	resp, err := c.jobApp.Submit(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// GetJob 获取任务详情
func (c *JobController) GetJob(ctx *gin.Context) {
	resp, err := c.jobApp.Get(ctx.Request.Context(), ctx.Param("job_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// ListJobs 列出进行中的任务
func (c *JobController) ListJobs(ctx *gin.Context) {
	owner := ctx.Query("owner_id")
	if owner == "" {
		owner = middleware.OwnerID(ctx)
	}
	resp, err := c.jobApp.List(ctx.Request.Context(), owner)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// ListHistory 已结束任务
func (c *JobController) ListHistory(ctx *gin.Context) {
	owner := ctx.Query("owner_id")
	if owner == "" {
		owner = middleware.OwnerID(ctx)
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	resp, err := c.jobApp.History(ctx.Request.Context(), owner, limit)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// Decide 选择压缩目标
func (c *JobController) Decide(ctx *gin.Context) {
	var req cqe.DecideCmd
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrDecisionRequired, err))
		return
	}
	req.JobID = ctx.Param("job_id")

	resp, err := c.jobApp.DecideText(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// CancelJob 取消任务，请求体可为空
func (c *JobController) CancelJob(ctx *gin.Context) {
	var req cqe.CancelCmd
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
			return
		}
	}
	req.JobID = ctx.Param("job_id")

	resp, err := c.jobApp.Cancel(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// GetStats 服务统计
func (c *JobController) GetStats(ctx *gin.Context) {
	restapi.Success(ctx, c.jobApp.Stats(ctx.Request.Context()))
}
