package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"compress-service/ddd/infrastructure/queue"
	"compress-service/internal/resource"
	"compress-service/pkg/config"
	"compress-service/pkg/logger"
	"compress-service/pkg/observability"
	"compress-service/pkg/task"
)

const serviceName = "compress-service"

func Run() {
	// 先使用标准输出确保能看到日志
	fmt.Println("[STARTUP] Starting compress service...")

	// 加载配置
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	// 初始化日志
	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	defer logService.Close()
	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})
	logger.Infof("Compress service starting version=%s", "1.0.0")

	profiler, err := observability.StartProfiling(serviceName, cfg.Profiling)
	if err != nil {
		logger.Warnf("Pyroscope profiling disabled error=%v", err)
	}
	if profiler != nil {
		defer profiler.Stop()
	}

	// 检查 FFmpeg 是否可用，直接在启动阶段失败
	checkFFmpeg(cfg.FFmpeg)

	if cfg.Compress.CleanupOnStart {
		removed, err := cleanupWorkDir(cfg.Compress.WorkDir)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to prepare work dir path=%s error=%v", cfg.Compress.WorkDir, err))
		}
		logger.Infof("Work dir cleaned path=%s removed=%d", cfg.Compress.WorkDir, removed)
	}

	// 资源初始化
	logger.Infof("Opening resources...")
	if err := resource.OpenAll(cfg); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to open resources error=%v", err))
	}
	defer resource.CloseAll()

	svc, err := buildServices(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to build services error=%v", err))
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	if err := task.StartAll(rootCtx); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}

	// 创建Gin引擎
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	svc.Router.SetupMiddleware(engine)
	svc.Router.SetupRoutes(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started addr=%s service=%s api_url=%s", addr, serviceName, fmt.Sprintf("http://%s/api/v1", addr))

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Received shutdown signal, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	// 停止接收新任务，给正在编码的任务一段宽限期
	svc.JobApp.Shutdown()
	queue.CloseDefaultJobQueue()
	waitWorkerIdle(svc, cfg.Worker.ShutdownGracePeriod)

	logger.Infof("Stopping background tasks...")
	task.StopAll()

	logger.Infof("Server exited safely")
	fmt.Println("[SHUTDOWN] Compress service exited safely")
}

func checkFFmpeg(cfg config.FFmpegConfig) {
	for _, bin := range []string{cfg.BinaryPath, cfg.ProbePath} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Fatal(fmt.Sprintf("Binary not found, please install or set ffmpeg.binary_path/probe_path binary=%s error=%s", bin, err.Error()))
		}
	}
	if strings.Contains(strings.ToLower(cfg.VideoCodec), "nvenc") {
		cmd := exec.Command(cfg.BinaryPath, "-hide_banner", "-encoders")
		if out, err := cmd.Output(); err == nil {
			if !strings.Contains(strings.ToLower(string(out)), "nvenc") {
				logger.Warnf("NVENC encoder not detected in FFmpeg, codec=%s", cfg.VideoCodec)
			}
		}
	}
}

// waitWorkerIdle 等待当前编码结束，超时后由 StopAll 取消
func waitWorkerIdle(svc *Services, grace time.Duration) {
	if grace <= 0 {
		return
	}
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if svc.Worker.GetStats().CurrentJobID == "" {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	logger.Warnf("Worker still busy after grace period job_id=%s", svc.Worker.GetStats().CurrentJobID)
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
