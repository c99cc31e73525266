package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/port"
	"compress-service/ddd/domain/service"
	"compress-service/pkg/config"
	"compress-service/pkg/logger"
)

const stderrTailLines = 50

var reTime = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)

// FFmpegExecutor implements gateway.Transcoder and port.DurationProber with local ffmpeg/ffprobe.
type FFmpegExecutor struct {
	binary  string
	probe   string
	threads int
}

// NewFFmpegExecutor 根据配置创建执行器
func NewFFmpegExecutor(cfg config.FFmpegConfig) *FFmpegExecutor {
	e := &FFmpegExecutor{binary: cfg.BinaryPath, probe: cfg.ProbePath, threads: cfg.Threads}
	if e.binary == "" {
		e.binary = "ffmpeg"
	}
	if e.probe == "" {
		e.probe = "ffprobe"
	}
	return e
}

// Encode 运行 ffmpeg，失败时返回带 stderr 尾部的 EncodeError
func (e *FFmpegExecutor) Encode(ctx context.Context, req gateway.EncodeRequest) error {
	args := e.BuildArgs(req)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	logger.Infof("ffmpeg command job_id=%s command=%s %s", req.JobID, e.binary, strings.Join(args, " "))

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return gateway.NewEncodeError(fmt.Errorf("创建FFmpeg stderr管道失败: %w", err), "")
	}
	if err := cmd.Start(); err != nil {
		return gateway.NewEncodeError(fmt.Errorf("启动FFmpeg命令失败: %w", err), "")
	}

	tail := make([]string, 0, stderrTailLines)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanProgress(stderr, req.DurationSeconds, &tail, req.Progress)
	}()

	<-scanDone
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return gateway.NewEncodeError(ctx.Err(), "")
	}
	if waitErr != nil {
		diag := strings.Join(tail, "\n")
		logger.Errorf("ffmpeg failed job_id=%s tail_stderr=%s", req.JobID, diag)
		return gateway.NewEncodeError(waitErr, diag)
	}
	return nil
}

// BuildArgs 构造 ffmpeg 参数。目标码率与 CRF 二选一，nvenc 使用 -cq 代替 -crf。
func (e *FFmpegExecutor) BuildArgs(req gateway.EncodeRequest) []string {
	v, a := req.Video, req.Audio
	args := []string{
		"-hide_banner", "-y",
		"-i", req.InputPath,
		"-progress", "pipe:2",
		"-nostats",
		"-c:v", v.Codec,
	}
	if e.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.threads))
	}

	isNvenc := strings.Contains(strings.ToLower(v.Codec), "nvenc")
	switch {
	case v.UsesBitrate():
		args = append(args, "-b:v", service.FormatKbps(v.BitrateKbps))
	case isNvenc:
		args = append(args, "-rc", "vbr", "-cq", strconv.Itoa(v.CRF))
	default:
		args = append(args, "-crf", strconv.Itoa(v.CRF))
	}
	if v.Preset != "" {
		args = append(args, "-preset", v.Preset)
	}
	if v.PixelFormat != "" {
		args = append(args, "-pix_fmt", v.PixelFormat)
	}
	if v.Profile != "" {
		args = append(args, "-profile:v", v.Profile)
	}

	args = append(args, "-c:a", a.Codec)
	if a.Bitrate != "" {
		args = append(args, "-b:a", a.Bitrate)
	}
	if a.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(a.Channels))
	}
	if a.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(a.SampleRate))
	}
	return append(args,
		"-map_metadata", "-1",
		"-movflags", "+faststart",
		req.OutputPath,
	)
}

func scanProgress(stderr io.Reader, durationSec float64, tail *[]string, cb port.ProgressCallback) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	last := -1

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "out_time_ms=") {
			if ms, err := strconv.ParseFloat(strings.TrimPrefix(line, "out_time_ms="), 64); err == nil {
				last = emitProgress(ms/1e6, durationSec, last, cb)
			}
			continue
		}
		if m := reTime.FindStringSubmatch(line); len(m) == 4 {
			hh, _ := strconv.ParseFloat(m[1], 64)
			mm, _ := strconv.ParseFloat(m[2], 64)
			ss, _ := strconv.ParseFloat(m[3], 64)
			last = emitProgress(hh*3600+mm*60+ss, durationSec, last, cb)
			continue
		}
		if strings.Contains(line, "=") && !strings.Contains(line, " ") {
			// 其余 -progress 键值行
			continue
		}

		b := *tail
		if len(b) >= stderrTailLines {
			b = b[1:]
		}
		*tail = append(b, line)
	}
}

func emitProgress(currentSec, totalSec float64, last int, cb port.ProgressCallback) int {
	if cb == nil || totalSec <= 0 {
		return last
	}
	pct := int((currentSec / totalSec) * 100)
	if pct > 99 {
		pct = 99
	}
	if pct < 0 {
		pct = 0
	}
	if pct != last {
		cb(pct)
	}
	return pct
}

// ProbeDuration 调用 ffprobe 获取输入时长（秒）
func (e *FFmpegExecutor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.probe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ParseDuration(string(out))
}

// ParseDuration 解析 ffprobe 输出
func ParseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if val <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", val)
	}
	return val, nil
}
