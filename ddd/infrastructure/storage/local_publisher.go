package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"compress-service/ddd/domain/gateway"
)

// LocalPublisher 未启用对象存储时，将产物复制到本地目录
type LocalPublisher struct {
	defaultDir string
}

// NewLocalPublisher destination 为空时使用 defaultDir
func NewLocalPublisher(defaultDir string) *LocalPublisher {
	return &LocalPublisher{defaultDir: defaultDir}
}

// Publish 实现 gateway.Publisher，caption 写入同名 .txt 文件
func (p *LocalPublisher) Publish(ctx context.Context, destination, filePath, caption string) (gateway.PublishResult, error) {
	dir := destination
	if dir == "" {
		dir = p.defaultDir
	}
	target := filepath.Join(dir, filepath.Base(filePath))
	fail := func(err error) (gateway.PublishResult, error) {
		return gateway.PublishResult{}, &gateway.PublishError{Destination: target, Err: err}
	}
	if dir == "" {
		return fail(errNoBucket)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}

	size, err := copyFile(filePath, target)
	if err != nil {
		_ = os.Remove(target)
		return fail(err)
	}
	if caption != "" {
		_ = os.WriteFile(target+".txt", []byte(caption+"\n"), 0o644)
	}
	return gateway.PublishResult{Location: target, SizeBytes: size}, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
