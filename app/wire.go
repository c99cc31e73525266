package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	httpadapter "compress-service/ddd/adapter/http"
	"compress-service/ddd/adapter/component"
	jobapp "compress-service/ddd/application/app"
	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/repo"
	"compress-service/ddd/domain/service"
	"compress-service/ddd/domain/vo"
	"compress-service/ddd/infrastructure/database/dao"
	"compress-service/ddd/infrastructure/database/persistence"
	"compress-service/ddd/infrastructure/executor"
	"compress-service/ddd/infrastructure/fetcher"
	"compress-service/ddd/infrastructure/notify"
	"compress-service/ddd/infrastructure/queue"
	"compress-service/ddd/infrastructure/storage"
	"compress-service/ddd/infrastructure/worker"
	"compress-service/internal/resource"
	"compress-service/pkg/config"
	"compress-service/pkg/logger"
	"compress-service/pkg/registry"
	"compress-service/pkg/task"
)

// Services 组装完成的组件
type Services struct {
	JobApp   jobapp.JobApp
	Queue    *queue.MemoryJobQueue
	Worker   worker.CompressionWorker
	Router   *httpadapter.Router
	Registry *service.JobRegistry
}

// buildServices 按配置组装组件并注册后台任务，资源需已打开
func buildServices(cfg *config.Config) (*Services, error) {
	ffmpeg := executor.NewFFmpegExecutor(cfg.FFmpeg)
	notifier := buildNotifier(cfg)
	history, err := buildHistory(cfg)
	if err != nil {
		return nil, err
	}

	var (
		objects   fetcher.ObjectDownloader
		publisher gateway.Publisher
	)
	if cfg.Minio.Enabled {
		minioRes := resource.DefaultMinioResource()
		ms := storage.NewMinioStorage(minioRes.GetClient(), minioRes.SourceBucket())
		objects = ms
		publisher = storage.NewObjectPublisher(ms, minioRes.DestinationBucket())
	} else {
		publisher = storage.NewLocalPublisher(cfg.Compress.Destination)
	}

	defaultDecision, err := vo.ParseDecision(cfg.Compress.DefaultDecision)
	if err != nil {
		return nil, fmt.Errorf("compress.default_decision: %w", err)
	}

	jobRegistry := service.NewJobRegistry(cfg.Compress.TombstoneSize)
	jobQueue := queue.DefaultJobQueue()
	srcFetcher := fetcher.NewSourceFetcher(cfg.Compress.WorkDir, objects, ffmpeg)

	app := jobapp.NewJobApp(jobRegistry, jobQueue, srcFetcher, notifier, history, jobapp.JobAppOptions{
		DecisionTimeout: cfg.Compress.DecisionTimeout,
		DefaultDecision: defaultDecision,
	})

	pipeline := service.NewCompressionService(jobRegistry, ffmpeg, publisher, notifier, service.CompressionOptions{
		WorkDir:          cfg.Compress.WorkDir,
		Destination:      cfg.Compress.Destination,
		AudioBitrateKbps: cfg.Compress.AudioBitrateKbps,
		BitrateFloorKbps: cfg.Compress.BitrateFloorKbps,
		Video: vo.VideoParams{
			Codec:       cfg.FFmpeg.VideoCodec,
			Preset:      cfg.FFmpeg.VideoPreset,
			PixelFormat: cfg.FFmpeg.PixelFormat,
			Profile:     cfg.FFmpeg.Profile,
		},
		Audio: vo.AudioParams{
			Codec:      cfg.FFmpeg.AudioCodec,
			Bitrate:    cfg.FFmpeg.AudioBitrate,
			Channels:   cfg.FFmpeg.AudioChannels,
			SampleRate: cfg.FFmpeg.AudioSampleRate,
		},
	})

	w := worker.NewCompressionWorker(cfg.Worker.WorkerID, jobQueue, jobRegistry, pipeline, app.HandleTerminal)
	app.AttachWorker(w)
	task.Register(w)

	if cfg.Kafka.Enabled {
		kc := resource.DefaultKafkaResource().Client()
		topic := cfg.Kafka.Topics.Submissions
		task.Register(component.NewSubmissionConsumer(app, topic, func() component.MessageReader {
			return kc.Reader(topic, cfg.Kafka.GroupID)
		}))
	}

	if cfg.ServiceRegistry.Enabled {
		serviceID := cfg.ServiceRegistry.ServiceID
		if serviceID == "" {
			serviceID = uuid.NewString()
		}
		host := cfg.ServiceRegistry.RegisterHost
		if host == "" {
			host, _ = os.Hostname()
		}
		reg, err := registry.NewServiceRegistry(cfg.Etcd, cfg.ServiceRegistry, registry.Instance{
			ServiceID:     serviceID,
			Addr:          fmt.Sprintf("%s:%d", host, cfg.Server.Port),
			QueueCapacity: jobQueue.Capacity(),
			StartedAt:     time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("service registry: %w", err)
		}
		task.Register(reg)
	}

	return &Services{
		JobApp:   app,
		Queue:    jobQueue,
		Worker:   w,
		Router:   httpadapter.NewRouter(app),
		Registry: jobRegistry,
	}, nil
}

// buildNotifier 日志通知始终启用，Redis/Kafka 按配置追加；非终态消息按任务限流
func buildNotifier(cfg *config.Config) gateway.Notifier {
	fanout := notify.Fanout{notify.LogNotifier{}}
	if cfg.Redis.Enabled {
		fanout = append(fanout, notify.NewRedisNotifier(resource.DefaultRedisResource().Client(), cfg.Notify.RedisChannelPrefix))
	}
	if cfg.Kafka.Enabled {
		fanout = append(fanout, notify.NewKafkaNotifier(resource.DefaultKafkaResource().Client(), cfg.Kafka.Topics.Events))
	}
	return notify.NewThrottled(fanout, cfg.Notify.MinInterval)
}

// buildHistory 未启用数据库时返回 nil
func buildHistory(cfg *config.Config) (repo.JobHistoryRepository, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	db := resource.DefaultMysqlResource().MainDB()
	if cfg.Database.AutoMigrate {
		if err := dao.NewJobRecordDAO(db).AutoMigrate(); err != nil {
			return nil, fmt.Errorf("auto migrate job_records: %w", err)
		}
		logger.Infof("Database schema migrated table=%s", "job_records")
	}
	return persistence.NewJobHistoryRepository(db), nil
}

// cleanupWorkDir 清理上次运行遗留的文件
func cleanupWorkDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			logger.Warnf("Failed to remove stale file path=%s error=%v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
