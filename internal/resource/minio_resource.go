package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"compress-service/pkg/config"
	"compress-service/pkg/logger"
)

var (
	minioResourceOnce      sync.Once
	singletonMinioResource *MinioResource
)

// MinioResource MinIO资源管理器
type MinioResource struct {
	client            *minio.Client
	sourceBucket      string
	destinationBucket string
}

// DefaultMinioResource 获取MinIO资源单例
func DefaultMinioResource() *MinioResource {
	minioResourceOnce.Do(func() {
		singletonMinioResource = &MinioResource{}
	})
	return singletonMinioResource
}

func (r *MinioResource) Name() string { return "minio" }

func (r *MinioResource) Enabled(cfg *config.Config) bool { return cfg.Minio.Enabled }

// Open 初始化MinIO客户端，目标桶不存在时只记录警告
func (r *MinioResource) Open(cfg *config.Config) error {
	minioCfg := cfg.Minio
	if minioCfg.Endpoint == "" {
		return fmt.Errorf("minio endpoint is required")
	}
	if minioCfg.SourceBucket == "" {
		return fmt.Errorf("minio source_bucket is required")
	}

	client, err := minio.New(minioCfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioCfg.AccessKeyID, minioCfg.SecretAccessKey, ""),
		Secure: minioCfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}
	r.client = client
	r.sourceBucket = minioCfg.SourceBucket
	r.destinationBucket = minioCfg.DestinationBucket

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, r.destinationBucket)
	switch {
	case err != nil:
		logger.Warn("MinIO destination check failed", map[string]interface{}{"bucket": r.destinationBucket, "error": err.Error()})
	case !exists:
		logger.Warn("MinIO destination bucket does not exist, publishing will fail", map[string]interface{}{"bucket": r.destinationBucket})
	}

	logger.Info("MinIO resource initialized", map[string]interface{}{
		"endpoint":           minioCfg.Endpoint,
		"source_bucket":      r.sourceBucket,
		"destination_bucket": r.destinationBucket,
	})
	return nil
}

// GetClient 获取MinIO客户端
func (r *MinioResource) GetClient() *minio.Client {
	return r.client
}

// SourceBucket 源文件桶
func (r *MinioResource) SourceBucket() string {
	return r.sourceBucket
}

// DestinationBucket 发布桶
func (r *MinioResource) DestinationBucket() string {
	return r.destinationBucket
}

// Close 释放资源
func (r *MinioResource) Close() {
	// minio-go客户端无需关闭连接
	r.client = nil
}
