package port

import (
	"context"
	"time"
)

// ProgressCallback is invoked by the transcoder to report percentage progress (0-99).
type ProgressCallback func(progress int)

// TransferProgress 下载进度，Total 未知时为 0
type TransferProgress struct {
	Current int64
	Total   int64
	Elapsed time.Duration
}

// Percent 未知总大小时返回 -1
func (p TransferProgress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	pct := int(p.Current * 100 / p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// BytesPerSecond 平均下载速度
func (p TransferProgress) BytesPerSecond() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Current) / p.Elapsed.Seconds()
}

// ETA 按平均速度估算剩余时间，无法估算时返回 0
func (p TransferProgress) ETA() time.Duration {
	speed := p.BytesPerSecond()
	if p.Total <= 0 || speed <= 0 || p.Current >= p.Total {
		return 0
	}
	return time.Duration(float64(p.Total-p.Current) / speed * float64(time.Second))
}

// TransferCallback 下载过程中回调
type TransferCallback func(TransferProgress)

// DurationProber reads the playable duration of a local media file.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}
