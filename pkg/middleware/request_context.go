package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compress-service/pkg/logger"
)

const (
	// HeaderOwnerID 任务所属用户
	HeaderOwnerID   = "X-Owner-ID"
	HeaderRequestID = "X-Request-ID"

	CtxOwnerID   = "owner_id"
	CtxRequestID = "request_id"
)

// RequestContextMiddleware 注入 owner_id 和 request_id，便于下游和日志使用。
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := strings.TrimSpace(c.GetHeader(HeaderOwnerID))
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		if ownerID != "" {
			c.Set(CtxOwnerID, ownerID)
		}
		c.Set(CtxRequestID, reqID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Next()
	}
}

// AccessLog 记录请求耗时
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetString(CtxRequestID),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("http request failed", fields)
			return
		}
		logger.Debug("http request", fields)
	}
}

// OwnerID 读取请求上下文中的 owner_id
func OwnerID(c *gin.Context) string {
	return c.GetString(CtxOwnerID)
}
