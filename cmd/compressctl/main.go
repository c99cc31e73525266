package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/service"
	"compress-service/ddd/domain/vo"
	"compress-service/ddd/infrastructure/executor"
	"compress-service/pkg/config"
)

// compressctl 运维辅助工具：离线估算码率、预览 ffmpeg 命令
func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "compressctl",
		Short:         "Operator tools for the compress service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.dev.yaml", "Config file path")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		return cfg, nil
	}

	root.AddCommand(newEstimateCommand(load), newPlanCommand(load))
	return root
}

func newEstimateCommand(load func() (*config.Config, error)) *cobra.Command {
	var sizeMB, duration float64
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the video bitrate for a target size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			est, err := service.EstimateVideoBitrateKbps(sizeMB, duration, cfg.Compress.AudioBitrateKbps, cfg.Compress.BitrateFloorKbps)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "video bitrate: %.2f kbps (%s)\n", est.VideoKbps, est.Arg())
			fmt.Fprintf(out, "target size:   %s\n", humanize.IBytes(uint64(sizeMB*1024*1024)))
			if est.Clamped() {
				fmt.Fprintf(out, "warning: %v\n", est.Warning)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&sizeMB, "size", 0, "Target size in MB")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Media duration in seconds")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newPlanCommand(load func() (*config.Config, error)) *cobra.Command {
	var decisionText, output string
	cmd := &cobra.Command{
		Use:   "plan <input>",
		Short: "Probe a local file and print the ffmpeg command a decision would run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			decision, err := vo.ParseDecision(decisionText)
			if err != nil {
				return err
			}
			ffmpeg := executor.NewFFmpegExecutor(cfg.FFmpeg)
			duration, err := ffmpeg.ProbeDuration(context.Background(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".compressed.mp4"
			}
			req, est, err := planRequest(cfg, decision, args[0], output, duration)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "duration: %.2fs decision: %s\n", duration, decision)
			if est != nil && est.Clamped() {
				fmt.Fprintf(out, "warning: %v\n", est.Warning)
			}
			fmt.Fprintf(out, "%s %s\n", cfg.FFmpeg.BinaryPath, strings.Join(ffmpeg.BuildArgs(req), " "))
			return nil
		},
	}
	cmd.Flags().StringVar(&decisionText, "decision", "quality:medium", "quality:<high|medium|low> or size:<MB>")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path")
	return cmd
}

// planRequest 与 CompressionService 相同的参数推导
func planRequest(cfg *config.Config, decision vo.Decision, input, output string, duration float64) (gateway.EncodeRequest, *service.BitrateEstimate, error) {
	req := gateway.EncodeRequest{
		JobID:           "plan",
		InputPath:       input,
		OutputPath:      output,
		DurationSeconds: duration,
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
	}
	if !decision.IsTargetSize() {
		req.Video.CRF = decision.Tier.CRF()
		return req, nil, nil
	}
	est, err := service.EstimateVideoBitrateKbps(decision.TargetSizeMB, duration, cfg.Compress.AudioBitrateKbps, cfg.Compress.BitrateFloorKbps)
	if err != nil {
		return req, nil, err
	}
	req.Video.BitrateKbps = est.VideoKbps
	return req, &est, nil
}
