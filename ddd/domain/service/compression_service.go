package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/vo"
	"compress-service/pkg/errno"
	"compress-service/pkg/logger"
)

// CompressionOptions 压缩流水线参数
type CompressionOptions struct {
	WorkDir          string
	Destination      string
	AudioBitrateKbps float64
	BitrateFloorKbps float64
	Video            vo.VideoParams // 编码器、preset 等基础参数
	Audio            vo.AudioParams
}

// CompressionService 单个任务的编码与发布流水线。
// 固定质量走 CRF，目标大小走码率估算。
type CompressionService struct {
	registry   *JobRegistry
	transcoder gateway.Transcoder
	publisher  gateway.Publisher
	notifier   gateway.Notifier
	opts       CompressionOptions
}

// NewCompressionService 创建压缩服务
func NewCompressionService(registry *JobRegistry, transcoder gateway.Transcoder, publisher gateway.Publisher, notifier gateway.Notifier, opts CompressionOptions) *CompressionService {
	return &CompressionService{
		registry:   registry,
		transcoder: transcoder,
		publisher:  publisher,
		notifier:   notifier,
		opts:       opts,
	}
}

// OutputPath 产物路径
func (s *CompressionService) OutputPath(jobID string) string {
	return filepath.Join(s.opts.WorkDir, jobID+".compressed.mp4")
}

// VideoParams 根据决策生成视频参数
func (s *CompressionService) VideoParams(job *entity.Job) (vo.VideoParams, *BitrateEstimate, error) {
	decision, ok := job.Decision()
	if !ok {
		return vo.VideoParams{}, nil, errno.Errorf(errno.ErrDecisionRequired, "job %s", job.ID())
	}
	video := s.opts.Video
	if !decision.IsTargetSize() {
		video.CRF = decision.Tier.CRF()
		return video, nil, nil
	}
	est, err := EstimateVideoBitrateKbps(decision.TargetSizeMB, job.DurationSeconds(), s.opts.AudioBitrateKbps, s.opts.BitrateFloorKbps)
	if err != nil {
		return vo.VideoParams{}, nil, err
	}
	video.BitrateKbps = est.VideoKbps
	return video, &est, nil
}

// Execute 编码并发布，成功后产物路径记录在任务上，由注册表在终态时删除
func (s *CompressionService) Execute(ctx context.Context, job *entity.Job) (gateway.PublishResult, error) {
	video, est, err := s.VideoParams(job)
	if err != nil {
		return gateway.PublishResult{}, err
	}
	if est != nil && est.Clamped() {
		s.notify(ctx, job, fmt.Sprintf("Requested size is too small for this video, using minimum bitrate %s", est.Arg()))
	}

	output := s.OutputPath(job.ID())
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return gateway.PublishResult{}, fmt.Errorf("create work dir: %w", err)
	}

	started := time.Now()
	err = s.transcoder.Encode(ctx, gateway.EncodeRequest{
		JobID:           job.ID(),
		InputPath:       job.SourcePath(),
		OutputPath:      output,
		DurationSeconds: job.DurationSeconds(),
		Video:           video,
		Audio:           s.opts.Audio,
		Progress: func(p int) {
			s.notifyProgress(ctx, job, fmt.Sprintf("Compressing... %d%%", p))
		},
	})
	if err != nil {
		RemoveFile(output)
		var encErr *gateway.EncodeError
		if !errors.As(err, &encErr) {
			err = gateway.NewEncodeError(err, "")
		}
		return gateway.PublishResult{}, err
	}

	info, statErr := os.Stat(output)
	if statErr != nil || info.Size() == 0 {
		RemoveFile(output)
		return gateway.PublishResult{}, gateway.NewEncodeError(errors.New("encoder produced no output"), "")
	}
	if err := s.registry.SetResult(job.ID(), output); err != nil {
		RemoveFile(output)
		return gateway.PublishResult{}, err
	}
	logger.Info("encode finished", map[string]interface{}{
		"job_id":     job.ID(),
		"size":       humanize.IBytes(uint64(info.Size())),
		"elapsed_ms": time.Since(started).Milliseconds(),
	})

	s.notify(ctx, job, "Uploading...")
	res, err := s.publisher.Publish(ctx, s.opts.Destination, output, s.Caption(job, info.Size()))
	if err != nil {
		var pubErr *gateway.PublishError
		if !errors.As(err, &pubErr) {
			err = &gateway.PublishError{Destination: s.opts.Destination, Err: err}
		}
		return gateway.PublishResult{}, err
	}
	if res.SizeBytes == 0 {
		res.SizeBytes = info.Size()
	}
	return res, nil
}

// Caption 发布说明
func (s *CompressionService) Caption(job *entity.Job, sizeBytes int64) string {
	decision, _ := job.Decision()
	return fmt.Sprintf("Compressed (%s), %s", decision, humanize.IBytes(uint64(sizeBytes)))
}

func (s *CompressionService) notify(ctx context.Context, job *entity.Job, text string) {
	s.send(ctx, job, text, false)
}

func (s *CompressionService) notifyProgress(ctx context.Context, job *entity.Job, text string) {
	s.send(ctx, job, text, true)
}

func (s *CompressionService) send(ctx context.Context, job *entity.Job, text string, progress bool) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, gateway.Notification{
		JobID:    job.ID(),
		OwnerID:  job.OwnerID(),
		State:    vo.JobStateCompressing,
		Text:     text,
		Progress: progress,
		Time:     time.Now(),
	})
}
