package observability

import (
	"github.com/grafana/pyroscope-go"

	"compress-service/pkg/config"
	"compress-service/pkg/logger"
)

// StartProfiling 启动 pyroscope 持续性能剖析，未启用时返回 nil
func StartProfiling(appName string, cfg config.ProfilingConfig) (*pyroscope.Profiler, error) {
	if !cfg.Enabled || cfg.ServerAddress == "" {
		return nil, nil
	}
	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   cfg.ServerAddress,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("pyroscope profiling started", map[string]interface{}{"server": cfg.ServerAddress, "app": appName})
	return p, nil
}
