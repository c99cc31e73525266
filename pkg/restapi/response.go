package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compress-service/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success 返回成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:      errno.OK.Code,
		Message:   errno.OK.Message,
		Data:      data,
		RequestID: ctx.GetString("request_id"),
	})
}

// Failed 返回失败响应，HTTP状态码由错误码推导
func Failed(ctx *gin.Context, err error) {
	code, msg := errno.Decode(err)
	ctx.JSON(httpStatus(err), Response{
		Code:      code,
		Message:   msg,
		RequestID: ctx.GetString("request_id"),
	})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, errno.ErrJobNotFound), errors.Is(err, errno.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errno.ErrDuplicateActiveJob),
		errors.Is(err, errno.ErrDecisionNotApplicable),
		errors.Is(err, errno.ErrCancelNotApplicable),
		errors.Is(err, errno.ErrTransitionRejected):
		return http.StatusConflict
	case errors.Is(err, errno.ErrQueueFull), errors.Is(err, errno.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, errno.ErrInvalidParam),
		errors.Is(err, errno.ErrInvalidInput),
		errors.Is(err, errno.ErrMissingParam),
		errors.Is(err, errno.ErrOwnerIDRequired),
		errors.Is(err, errno.ErrSourceRequired),
		errors.Is(err, errno.ErrJobIDRequired),
		errors.Is(err, errno.ErrDecisionRequired):
		return http.StatusBadRequest
	case errors.Is(err, errno.ErrDatabase), errors.Is(err, errno.ErrInternalServer):
		return http.StatusInternalServerError
	}
	var code *errno.Errno
	if errors.As(err, &code) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
