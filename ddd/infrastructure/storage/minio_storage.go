package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"compress-service/ddd/domain/port"
	"compress-service/pkg/logger"
)

// MinioStorage MinIO对象存储
type MinioStorage struct {
	client *minio.Client
	bucket string // 源文件桶
}

// NewMinioStorage 创建MinIO存储实例
func NewMinioStorage(client *minio.Client, sourceBucket string) *MinioStorage {
	return &MinioStorage{client: client, bucket: sourceBucket}
}

// Download 从源桶下载对象到本地路径，返回字节数；onProgress 可以为 nil
func (s *MinioStorage) Download(ctx context.Context, objectKey, localPath string, onProgress port.TransferCallback) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, fmt.Errorf("create local directory failed: %w", err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		logger.Error("Failed to get object from MinIO", map[string]interface{}{
			"bucket":     s.bucket,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return 0, fmt.Errorf("get object from minio failed: %w", err)
	}
	defer object.Close()

	localFile, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("create local file failed: %w", err)
	}
	defer localFile.Close()

	var src io.ReadCloser = object
	if onProgress != nil {
		var total int64
		if info, statErr := object.Stat(); statErr == nil {
			total = info.Size
		}
		src = port.NewTransferReader(object, 0, total, onProgress)
	}

	n, err := io.Copy(localFile, src)
	if err != nil {
		logger.Error("Failed to download file from MinIO", map[string]interface{}{
			"object_key": objectKey,
			"local_path": localPath,
			"error":      err.Error(),
		})
		return n, fmt.Errorf("download file from minio failed: %w", err)
	}

	logger.Info("File downloaded successfully", map[string]interface{}{
		"object_key": objectKey,
		"local_path": localPath,
		"size":       n,
	})
	return n, nil
}

// Upload 上传本地文件，metadata 作为对象用户元数据
func (s *MinioStorage) Upload(ctx context.Context, bucket, objectKey, localPath string, metadata map[string]string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("get file info failed: %w", err)
	}

	info, err := s.client.PutObject(ctx, bucket, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType:  ContentTypeFor(objectKey),
		UserMetadata: metadata,
	})
	if err != nil {
		logger.Error("Failed to upload file to MinIO", map[string]interface{}{
			"local_path": localPath,
			"bucket":     bucket,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return 0, fmt.Errorf("upload file to minio failed: %w", err)
	}

	logger.Info("File uploaded successfully", map[string]interface{}{
		"bucket":     bucket,
		"object_key": objectKey,
		"size":       info.Size,
	})
	return info.Size, nil
}

// ContentTypeFor 根据文件扩展名获取内容类型
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
