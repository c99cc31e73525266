package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Compress.QueueCapacity)
	assert.Equal(t, time.Minute, cfg.Compress.DecisionTimeout)
	assert.Equal(t, "quality:medium", cfg.Compress.DefaultDecision)
	assert.InDelta(t, 128, cfg.Compress.AudioBitrateKbps, 0.001)
	assert.InDelta(t, 100, cfg.Compress.BitrateFloorKbps, 0.001)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg.BinaryPath)
	assert.Equal(t, "128k", cfg.FFmpeg.AudioBitrate)
	assert.Equal(t, "compress.submissions", cfg.Kafka.Topics.Submissions)
	assert.Equal(t, "compress.events", cfg.Kafka.Topics.Events)
}

func TestLoadReadsCompressSection(t *testing.T) {
	path := writeConfig(t, `
compress:
  queue_capacity: 3
  decision_timeout: 15s
  default_decision: "size:25"
  audio_bitrate_kbps: 96
  bitrate_floor_kbps: 150
  work_dir: /var/lib/compress
minio:
  source_bucket: uploads
  access_key: ak
  secret_key: sk
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Compress.QueueCapacity)
	assert.Equal(t, 15*time.Second, cfg.Compress.DecisionTimeout)
	assert.Equal(t, "size:25", cfg.Compress.DefaultDecision)
	assert.InDelta(t, 96, cfg.Compress.AudioBitrateKbps, 0.001)
	assert.Equal(t, "96k", cfg.FFmpeg.AudioBitrate)
	assert.Equal(t, "/var/lib/compress", cfg.Compress.WorkDir)
	assert.Equal(t, "uploads", cfg.Minio.DestinationBucket, "destination falls back to source bucket")
	assert.Equal(t, "ak", cfg.Minio.AccessKeyID)
	assert.Equal(t, "sk", cfg.Minio.SecretAccessKey)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "compress:\n  queue_capacity: 3\n")
	t.Setenv("COMPRESS_COMPRESS_QUEUE_CAPACITY", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Compress.QueueCapacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGlobalConfig(t *testing.T) {
	prev := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(prev) })

	cfg := &Config{}
	SetGlobalConfig(cfg)
	assert.Same(t, cfg, GetGlobalConfig())
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Username: "u", Password: "p", Host: "db", Port: 3306, Database: "compress", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/compress?charset=utf8mb4&parseTime=True&loc=Local", db.GetDSN())
}

func TestAudioBitrateFollowsEncoderSetting(t *testing.T) {
	path := writeConfig(t, `
compress:
  audio_bitrate_kbps: 128
ffmpeg:
  audio_bitrate: 192k
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192k", cfg.FFmpeg.AudioBitrate)
	assert.InDelta(t, 192, cfg.Compress.AudioBitrateKbps, 0.001)
}

func TestAudioBitrateInvalid(t *testing.T) {
	path := writeConfig(t, "ffmpeg:\n  audio_bitrate: loud\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "ffmpeg.audio_bitrate")
}

func TestParseBitrateKbps(t *testing.T) {
	cases := map[string]float64{
		"128k":  128,
		"1.5M":  1500,
		"96000": 96,
		" 64K ": 64,
	}
	for in, want := range cases {
		got, err := ParseBitrateKbps(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 0.001, in)
	}
	for _, bad := range []string{"", "k", "-1k", "0", "nan"} {
		_, err := ParseBitrateKbps(bad)
		assert.Error(t, err, bad)
	}
}
