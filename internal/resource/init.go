package resource

import (
	"fmt"
	"sync"

	"compress-service/pkg/config"
	"compress-service/pkg/logger"
)

// Resource 外部依赖资源，按配置开关启用
type Resource interface {
	Name() string
	Enabled(cfg *config.Config) bool
	Open(cfg *config.Config) error
	Close()
}

var (
	mu     sync.Mutex
	opened []Resource
)

func all() []Resource {
	return []Resource{
		DefaultMysqlResource(),
		DefaultRedisResource(),
		DefaultKafkaResource(),
		DefaultMinioResource(),
	}
}

// OpenAll 打开所有启用的资源，失败时关闭已打开的
func OpenAll(cfg *config.Config) error {
	mu.Lock()
	defer mu.Unlock()
	for _, r := range all() {
		if !r.Enabled(cfg) {
			logger.Infof("resource %s disabled", r.Name())
			continue
		}
		if err := r.Open(cfg); err != nil {
			closeLocked()
			return fmt.Errorf("open %s: %w", r.Name(), err)
		}
		opened = append(opened, r)
		logger.Infof("resource %s opened", r.Name())
	}
	return nil
}

// CloseAll 逆序关闭资源
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	for i := len(opened) - 1; i >= 0; i-- {
		opened[i].Close()
	}
	opened = nil
}
