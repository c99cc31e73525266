package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/domain/entity"
	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/vo"
)

type fileTranscoder struct {
	content []byte
	err     error
	last    gateway.EncodeRequest
}

func (f *fileTranscoder) Encode(_ context.Context, req gateway.EncodeRequest) error {
	f.last = req
	if req.Progress != nil {
		req.Progress(50)
	}
	if f.content != nil {
		if err := os.WriteFile(req.OutputPath, f.content, 0o644); err != nil {
			return err
		}
	}
	return f.err
}

type memPublisher struct {
	err     error
	caption string
}

func (m *memPublisher) Publish(_ context.Context, destination, filePath, caption string) (gateway.PublishResult, error) {
	if m.err != nil {
		return gateway.PublishResult{}, m.err
	}
	m.caption = caption
	return gateway.PublishResult{Location: destination + "/" + filepath.Base(filePath)}, nil
}

type memNotifier struct {
	mu       sync.Mutex
	texts    []string
	progress []bool
}

func (m *memNotifier) Notify(_ context.Context, n gateway.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, n.Text)
	m.progress = append(m.progress, n.Progress)
}

func compressingJob(t *testing.T, r *JobRegistry, d vo.Decision, duration float64) *entity.Job {
	t.Helper()
	job, err := r.Create("alice", "a.mp4")
	require.NoError(t, err)
	_, err = r.TransitionWith(job.ID(), vo.States(vo.JobStateFetching), vo.JobStateAwaitingDecision, func(j *entity.Job) error {
		return j.RecordFetch("/tmp/in.mp4", duration)
	})
	require.NoError(t, err)
	_, err = r.TransitionWith(job.ID(), vo.States(vo.JobStateAwaitingDecision), vo.JobStateQueued, func(j *entity.Job) error {
		return j.ApplyDecision(d)
	})
	require.NoError(t, err)
	job, err = r.TransitionWith(job.ID(), vo.States(vo.JobStateQueued), vo.JobStateCompressing, nil)
	require.NoError(t, err)
	return job
}

func newService(t *testing.T, r *JobRegistry, tr gateway.Transcoder, pub gateway.Publisher, n gateway.Notifier) *CompressionService {
	return NewCompressionService(r, tr, pub, n, CompressionOptions{
		WorkDir:          t.TempDir(),
		Destination:      "compressed",
		AudioBitrateKbps: 128,
		BitrateFloorKbps: 100,
		Video:            vo.VideoParams{Codec: "libx264", Preset: "medium"},
		Audio:            vo.AudioParams{Codec: "aac", Bitrate: "128k"},
	})
}

func TestCompressionTargetSizeUsesEstimator(t *testing.T) {
	r := NewJobRegistry(8)
	d, _ := vo.TargetSize(50)
	job := compressingJob(t, r, d, 120)
	tr := &fileTranscoder{content: []byte("video")}
	pub := &memPublisher{}
	svc := newService(t, r, tr, pub, &memNotifier{})

	res, err := svc.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.InDelta(t, 3285.33, tr.last.Video.BitrateKbps, 0.01)
	assert.Zero(t, tr.last.Video.CRF)
	assert.Equal(t, int64(5), res.SizeBytes)
	assert.Contains(t, pub.caption, "size:50")

	snap, err := r.Get(job.ID())
	require.NoError(t, err)
	assert.Equal(t, svc.OutputPath(job.ID()), snap.ResultPath())
}

func TestCompressionFixedQualityUsesCRF(t *testing.T) {
	r := NewJobRegistry(8)
	d, _ := vo.FixedQuality(vo.QualityLow)
	job := compressingJob(t, r, d, 10)
	tr := &fileTranscoder{content: []byte("v")}
	svc := newService(t, r, tr, &memPublisher{}, nil)

	_, err := svc.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 33, tr.last.Video.CRF)
	assert.False(t, tr.last.Video.UsesBitrate())
}

func TestCompressionClampNotifies(t *testing.T) {
	r := NewJobRegistry(8)
	d, _ := vo.TargetSize(1)
	job := compressingJob(t, r, d, 600)
	n := &memNotifier{}
	tr := &fileTranscoder{content: []byte("v")}
	svc := newService(t, r, tr, &memPublisher{}, n)

	_, err := svc.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 100.0, tr.last.Video.BitrateKbps)
	require.Len(t, n.texts, 3)
	assert.Contains(t, n.texts[0], "100k")
	assert.Equal(t, "Compressing... 50%", n.texts[1])
	assert.Equal(t, "Uploading...", n.texts[2])
	// 只有编码进度可被限流
	assert.Equal(t, []bool{false, true, false}, n.progress)
}

func TestCompressionEmptyOutputIsEncodeError(t *testing.T) {
	r := NewJobRegistry(8)
	d, _ := vo.FixedQuality(vo.QualityHigh)
	job := compressingJob(t, r, d, 10)
	svc := newService(t, r, &fileTranscoder{content: []byte{}}, &memPublisher{}, nil)

	_, err := svc.Execute(context.Background(), job)
	var encErr *gateway.EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.NoFileExists(t, svc.OutputPath(job.ID()))
}

func TestCompressionEncodeFailureRemovesPartialOutput(t *testing.T) {
	r := NewJobRegistry(8)
	d, _ := vo.FixedQuality(vo.QualityHigh)
	job := compressingJob(t, r, d, 10)
	svc := newService(t, r, &fileTranscoder{content: []byte("partial"), err: errors.New("exit status 1")}, &memPublisher{}, nil)

	_, err := svc.Execute(context.Background(), job)
	var encErr *gateway.EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.NoFileExists(t, svc.OutputPath(job.ID()))

	snap, _ := r.Get(job.ID())
	assert.Empty(t, snap.ResultPath())
}

func TestCompressionPublishFailureIsPublishError(t *testing.T) {
	r := NewJobRegistry(8)
	d, _ := vo.FixedQuality(vo.QualityHigh)
	job := compressingJob(t, r, d, 10)
	svc := newService(t, r, &fileTranscoder{content: []byte("v")}, &memPublisher{err: errors.New("denied")}, nil)

	_, err := svc.Execute(context.Background(), job)
	var pubErr *gateway.PublishError
	require.True(t, errors.As(err, &pubErr))
	assert.Equal(t, "compressed", pubErr.Destination)

	// 产物由注册表在终态时删除
	snap, _ := r.Get(job.ID())
	assert.FileExists(t, snap.ResultPath())
}
