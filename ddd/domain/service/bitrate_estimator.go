package service

import (
	"fmt"

	"compress-service/pkg/errno"
)

// KilobitsPerMB 1 MB = 8192 kb
const KilobitsPerMB = 8192

// BitrateEstimate 码率估算结果
type BitrateEstimate struct {
	VideoKbps     float64 // 实际使用的码率，不低于下限
	RequestedKbps float64 // 按目标大小算出的原始码率
	Warning       error   // 被下限截断时为 ErrSizeTooSmall，不影响继续编码
}

// Clamped 是否被下限截断
func (e BitrateEstimate) Clamped() bool {
	return e.Warning != nil
}

// Arg ffmpeg -b:v 参数，取整到 kbps
func (e BitrateEstimate) Arg() string {
	return FormatKbps(e.VideoKbps)
}

// FormatKbps 格式化为 ffmpeg 码率参数
func FormatKbps(kbps float64) string {
	return fmt.Sprintf("%.0fk", kbps)
}

// EstimateVideoBitrateKbps 根据目标大小和时长估算平均视频码率。
// 单次平均码率估算，不考虑封装开销，产物大小会偏离目标。
func EstimateVideoBitrateKbps(targetSizeMB, durationSeconds, audioBitrateKbps, floorKbps float64) (BitrateEstimate, error) {
	if durationSeconds <= 0 {
		return BitrateEstimate{}, errno.Errorf(errno.ErrInvalidDuration, "duration %.3fs", durationSeconds)
	}
	totalKb := targetSizeMB * KilobitsPerMB
	audioKb := audioBitrateKbps * durationSeconds
	videoKbps := (totalKb - audioKb) / durationSeconds

	est := BitrateEstimate{VideoKbps: videoKbps, RequestedKbps: videoKbps}
	if videoKbps < floorKbps {
		est.VideoKbps = floorKbps
		est.Warning = errno.Errorf(errno.ErrSizeTooSmall, "requested %.0f kbps, using %.0f kbps", videoKbps, floorKbps)
	}
	return est, nil
}
