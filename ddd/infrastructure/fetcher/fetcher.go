package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-getter"

	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/port"
	"compress-service/pkg/logger"
)

var unsafeChars = regexp.MustCompile(`[^\w.-]`)

// ObjectDownloader 从对象存储下载
type ObjectDownloader interface {
	Download(ctx context.Context, objectKey, localPath string, onProgress port.TransferCallback) (int64, error)
}

// SourceFetcher 下载源视频并探测时长。
// 带 scheme 或强制 getter 前缀(如 "s3::")的引用走 go-getter，其余视为源桶中的对象 key。
type SourceFetcher struct {
	workDir string
	objects ObjectDownloader
	prober  port.DurationProber
}

// NewSourceFetcher objects 为 nil 时只支持 URL 引用
func NewSourceFetcher(workDir string, objects ObjectDownloader, prober port.DurationProber) *SourceFetcher {
	return &SourceFetcher{workDir: workDir, objects: objects, prober: prober}
}

// newGetters 每次下载使用新的 getter 实例。
// Client 会把自身写入 getter，共享实例会让并发下载串用进度回调。
func newGetters() map[string]getter.Getter {
	httpGetter := &getter.HttpGetter{Netrc: true}
	return map[string]getter.Getter{
		// 复制而不是软链，删除源文件时不影响原文件
		"file":  &getter.FileGetter{Copy: true},
		"http":  httpGetter,
		"https": httpGetter,
		"s3":    new(getter.S3Getter),
		"gcs":   new(getter.GCSGetter),
	}
}

// progressListener 将 go-getter 的下载流接到 TransferCallback
type progressListener struct {
	cb port.TransferCallback
}

func (l progressListener) TrackProgress(_ string, currentSize, totalSize int64, stream io.ReadCloser) io.ReadCloser {
	return port.NewTransferReader(stream, currentSize, totalSize, l.cb)
}

// SanitizeFilename 替换文件名中的不安全字符
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		return "video"
	}
	return name
}

// IsURL 是否为 go-getter 处理的引用
func IsURL(ref string) bool {
	return strings.Contains(ref, "://") || strings.Contains(ref, "::")
}

// LocalPath 任务源文件的本地路径
func (f *SourceFetcher) LocalPath(jobID, sourceRef string) string {
	ref := sourceRef
	if i := strings.Index(ref, "?"); i >= 0 {
		ref = ref[:i]
	}
	return filepath.Join(f.workDir, jobID+"_"+SanitizeFilename(path.Base(ref)))
}

// Fetch 实现 gateway.Fetcher
func (f *SourceFetcher) Fetch(ctx context.Context, jobID, sourceRef string, onProgress port.TransferCallback) (gateway.FetchResult, error) {
	dst := f.LocalPath(jobID, sourceRef)
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return gateway.FetchResult{}, &gateway.FetchError{Source: sourceRef, Err: err}
	}

	size, err := f.download(ctx, sourceRef, dst, onProgress)
	if err != nil {
		_ = os.Remove(dst)
		return gateway.FetchResult{}, &gateway.FetchError{Source: sourceRef, Err: err}
	}

	duration, err := f.prober.ProbeDuration(ctx, dst)
	if err != nil {
		_ = os.Remove(dst)
		return gateway.FetchResult{}, &gateway.FetchError{Source: sourceRef, Err: fmt.Errorf("probe duration: %w", err)}
	}

	logger.Info("source fetched", map[string]interface{}{
		"job_id":   jobID,
		"source":   sourceRef,
		"path":     dst,
		"size":     size,
		"duration": duration,
	})
	return gateway.FetchResult{LocalPath: dst, DurationSeconds: duration, SizeBytes: size}, nil
}

func (f *SourceFetcher) download(ctx context.Context, sourceRef, dst string, onProgress port.TransferCallback) (int64, error) {
	if !IsURL(sourceRef) {
		if f.objects == nil {
			return 0, errors.New("object storage is not configured")
		}
		return f.objects.Download(ctx, strings.TrimLeft(sourceRef, "/"), dst, onProgress)
	}

	client := &getter.Client{
		Ctx:     ctx,
		Src:     sourceRef,
		Dst:     dst,
		Mode:    getter.ClientModeFile,
		Getters: newGetters(),
	}
	if onProgress != nil {
		client.ProgressListener = progressListener{cb: onProgress}
	}
	if err := client.Get(); err != nil {
		return 0, err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		return 0, errors.New("downloaded file is empty")
	}
	return info.Size(), nil
}
