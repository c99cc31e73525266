package gateway

import "fmt"

// MaxDiagnosticLen 编码器诊断信息最大长度
const MaxDiagnosticLen = 1000

// FetchError 源文件不可用
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EncodeError 编码失败，Diagnostic 为截断后的编码器输出
type EncodeError struct {
	Diagnostic string
	Err        error
}

// NewEncodeError 创建编码错误并截断诊断信息
func NewEncodeError(err error, diagnostic string) *EncodeError {
	return &EncodeError{Err: err, Diagnostic: TruncateDiagnostic(diagnostic)}
}

func (e *EncodeError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("encode: %v", e.Err)
	}
	return fmt.Sprintf("encode: %v: %s", e.Err, e.Diagnostic)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// PublishError 发布失败
type PublishError struct {
	Destination string
	Err         error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Destination, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// TruncateDiagnostic 按字符截断
func TruncateDiagnostic(s string) string {
	r := []rune(s)
	if len(r) <= MaxDiagnosticLen {
		return s
	}
	return string(r[:MaxDiagnosticLen])
}
