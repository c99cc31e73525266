package gateway

import (
	"context"
	"time"

	"compress-service/ddd/domain/port"
	"compress-service/ddd/domain/vo"
)

// FetchResult 获取结果
type FetchResult struct {
	LocalPath       string
	DurationSeconds float64
	SizeBytes       int64
}

// Fetcher 将源引用下载到本地
type Fetcher interface {
	// Fetch 失败返回 *FetchError；onProgress 可以为 nil
	Fetch(ctx context.Context, jobID, sourceRef string, onProgress port.TransferCallback) (FetchResult, error)
}

// EncodeRequest 编码请求
type EncodeRequest struct {
	JobID           string
	InputPath       string
	OutputPath      string
	DurationSeconds float64
	Video           vo.VideoParams
	Audio           vo.AudioParams
	Progress        port.ProgressCallback
}

// Transcoder 调用外部编码器
type Transcoder interface {
	// Encode 失败返回 *EncodeError
	Encode(ctx context.Context, req EncodeRequest) error
}

// PublishResult 发布结果
type PublishResult struct {
	Location  string
	SizeBytes int64
}

// Publisher 将产物发布到目标位置
type Publisher interface {
	// Publish 失败返回 *PublishError
	Publish(ctx context.Context, destination, filePath, caption string) (PublishResult, error)
}

// Notification 面向用户的状态消息。
// Progress 标记下载/编码进度这类可合并的消息，只有这类消息会被限流。
type Notification struct {
	JobID    string      `json:"job_id"`
	OwnerID  string      `json:"owner_id"`
	State    vo.JobState `json:"state"`
	Text     string      `json:"text"`
	Progress bool        `json:"progress,omitempty"`
	Time     time.Time   `json:"time"`
}

// Notifier 尽力而为的通知，不返回错误
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
