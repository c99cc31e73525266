package storage

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"compress-service/ddd/domain/gateway"
)

// ObjectUploader 上传本地文件到对象存储
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, objectKey, localPath string, metadata map[string]string) (int64, error)
}

// ObjectPublisher 将压缩产物发布到目标桶。
// destination 形如 "bucket" 或 "bucket/prefix"，为空时使用默认桶。
type ObjectPublisher struct {
	uploader      ObjectUploader
	defaultBucket string
}

// NewObjectPublisher 创建发布器
func NewObjectPublisher(uploader ObjectUploader, defaultBucket string) *ObjectPublisher {
	return &ObjectPublisher{uploader: uploader, defaultBucket: defaultBucket}
}

// ParseDestination 拆分桶名和前缀
func ParseDestination(destination, defaultBucket string) (bucket, prefix string) {
	d := strings.Trim(destination, "/")
	if d == "" {
		return defaultBucket, ""
	}
	bucket, prefix, _ = strings.Cut(d, "/")
	return bucket, prefix
}

// Publish 实现 gateway.Publisher
func (p *ObjectPublisher) Publish(ctx context.Context, destination, filePath, caption string) (gateway.PublishResult, error) {
	bucket, prefix := ParseDestination(destination, p.defaultBucket)
	if bucket == "" {
		return gateway.PublishResult{}, &gateway.PublishError{Destination: destination, Err: errNoBucket}
	}
	key := path.Join(prefix, filepath.Base(filePath))

	size, err := p.uploader.Upload(ctx, bucket, key, filePath, map[string]string{"caption": caption})
	if err != nil {
		return gateway.PublishResult{}, &gateway.PublishError{Destination: bucket + "/" + key, Err: err}
	}
	return gateway.PublishResult{Location: bucket + "/" + key, SizeBytes: size}, nil
}
