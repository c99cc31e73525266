package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compress-service/ddd/application/app"
	"compress-service/pkg/middleware"
)

// Router 路由配置
type Router struct {
	jobApp app.JobApp
}

// NewRouter 创建路由配置
func NewRouter(jobApp app.JobApp) *Router {
	return &Router{jobApp: jobApp}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(engine *gin.Engine) {
	jobController := NewJobController(r.jobApp)

	v1 := engine.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobController.SubmitJob) // 提交任务
			jobs.GET("", jobController.ListJobs)   // 进行中的任务

			jobs.GET("/:job_id", jobController.GetJob)             // 任务详情
			jobs.POST("/:job_id/decision", jobController.Decide)   // 选择压缩目标
			jobs.POST("/:job_id/cancel", jobController.CancelJob) // 取消任务
		}
		v1.GET("/history", jobController.ListHistory) // 已结束任务
		v1.GET("/stats", jobController.GetStats)      // 统计
	}

	// 健康检查路由
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "compress-service",
			"version": "1.0.0",
		})
	})
}

// SetupMiddleware 设置中间件
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	// CORS中间件
	engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Owner-ID, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	engine.Use(middleware.RequestContextMiddleware())
	engine.Use(middleware.AccessLog())

	// 恢复中间件
	engine.Use(gin.Recovery())
}
