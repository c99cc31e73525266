package errno

import (
	"errors"
	"fmt"
)

// BizError attaches a cause to a business error code. errors.Is matches the
// code sentinel, errors.Unwrap reaches the cause.
type BizError struct {
	Errno *Errno
	Cause error
}

// NewBizError wraps cause with the given code.
func NewBizError(code *Errno, cause error) *BizError {
	return &BizError{Errno: code, Cause: cause}
}

// Errorf is NewBizError with a formatted cause.
func Errorf(code *Errno, format string, args ...interface{}) *BizError {
	return &BizError{Errno: code, Cause: fmt.Errorf(format, args...)}
}

func (e *BizError) Error() string {
	if e.Cause == nil {
		return e.Errno.Message
	}
	return fmt.Sprintf("%s: %v", e.Errno.Message, e.Cause)
}

func (e *BizError) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t == e.Errno
}

func (e *BizError) Unwrap() error {
	return e.Cause
}

// Decode 提取错误码和消息，未知错误按内部错误处理
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}
	var biz *BizError
	if errors.As(err, &biz) {
		return biz.Errno.Code, biz.Error()
	}
	var code *Errno
	if errors.As(err, &code) {
		return code.Code, code.Message
	}
	return ErrInternalServer.Code, err.Error()
}
