package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Log             LogConfig             `mapstructure:"log"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Compress        CompressConfig        `mapstructure:"compress"`
	FFmpeg          FFmpegConfig          `mapstructure:"ffmpeg"`
	Notify          NotifyConfig          `mapstructure:"notify"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Etcd            EtcdConfig            `mapstructure:"etcd"`
	Profiling       ProfilingConfig       `mapstructure:"profiling"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	GroupID          string            `mapstructure:"group_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

// KafkaTopicsConfig topic names used by the service.
type KafkaTopicsConfig struct {
	Submissions string `mapstructure:"submissions"`
	Events      string `mapstructure:"events"`
}

// MinioConfig MinIO配置
type MinioConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Endpoint          string `mapstructure:"endpoint"`
	AccessKeyID       string `mapstructure:"access_key_id"`
	AccessKey         string `mapstructure:"access_key"`
	SecretAccessKey   string `mapstructure:"secret_access_key"`
	SecretKey         string `mapstructure:"secret_key"`
	UseSSL            bool   `mapstructure:"use_ssl"`
	SourceBucket      string `mapstructure:"source_bucket"`
	DestinationBucket string `mapstructure:"destination_bucket"`
}

// CompressConfig 压缩任务生命周期配置
type CompressConfig struct {
	QueueCapacity    int           `mapstructure:"queue_capacity"`
	DecisionTimeout  time.Duration `mapstructure:"decision_timeout"`
	DefaultDecision  string        `mapstructure:"default_decision"`
	AudioBitrateKbps float64       `mapstructure:"audio_bitrate_kbps"`
	BitrateFloorKbps float64       `mapstructure:"bitrate_floor_kbps"`
	WorkDir          string        `mapstructure:"work_dir"`
	Destination      string        `mapstructure:"destination"`
	CleanupOnStart   bool          `mapstructure:"cleanup_on_start"`
	TombstoneSize    int           `mapstructure:"tombstone_size"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath      string `mapstructure:"binary_path"`
	ProbePath       string `mapstructure:"probe_path"`
	VideoCodec      string `mapstructure:"video_codec"`
	VideoPreset     string `mapstructure:"video_preset"`
	PixelFormat     string `mapstructure:"pixel_format"`
	Profile         string `mapstructure:"profile"`
	AudioCodec      string `mapstructure:"audio_codec"`
	AudioBitrate    string `mapstructure:"audio_bitrate"`
	AudioChannels   int    `mapstructure:"audio_channels"`
	AudioSampleRate int    `mapstructure:"audio_sample_rate"`
	Threads         int    `mapstructure:"threads"`
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	RedisChannelPrefix string        `mapstructure:"redis_channel_prefix"`
	MinInterval        time.Duration `mapstructure:"min_interval"`
}

// WorkerConfig Worker相关配置
type WorkerConfig struct {
	WorkerID            string        `mapstructure:"worker_id"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// ServiceRegistryConfig registration configuration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// EtcdConfig etcd client configuration.
type EtcdConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
}

// ProfilingConfig pyroscope settings.
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobalConfig 设置全局配置
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置，未初始化时返回nil
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("server.port", 8083)
	v.SetDefault("kafka.client_id", "compress-service")
	v.SetDefault("kafka.group_id", "compress-service-group")
	v.SetDefault("kafka.topics.submissions", "compress.submissions")
	v.SetDefault("kafka.topics.events", "compress.events")
	v.SetDefault("compress.queue_capacity", 10)
	v.SetDefault("compress.decision_timeout", "60s")
	v.SetDefault("compress.default_decision", "quality:medium")
	v.SetDefault("compress.audio_bitrate_kbps", 128)
	v.SetDefault("compress.bitrate_floor_kbps", 100)
	v.SetDefault("compress.cleanup_on_start", true)

	// 设置环境变量前缀
	v.SetEnvPrefix("COMPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() error {
	// 兼容不同的密钥字段
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}
	if c.Minio.DestinationBucket == "" {
		c.Minio.DestinationBucket = c.Minio.SourceBucket
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8083
	}

	// 压缩生命周期默认值
	if c.Compress.QueueCapacity <= 0 {
		c.Compress.QueueCapacity = 10
	}
	if c.Compress.DecisionTimeout <= 0 {
		c.Compress.DecisionTimeout = time.Minute
	}
	if strings.TrimSpace(c.Compress.DefaultDecision) == "" {
		c.Compress.DefaultDecision = "quality:medium"
	}
	if c.Compress.AudioBitrateKbps <= 0 {
		c.Compress.AudioBitrateKbps = 128
	}
	if c.Compress.BitrateFloorKbps <= 0 {
		c.Compress.BitrateFloorKbps = 100
	}
	if c.Compress.WorkDir == "" {
		c.Compress.WorkDir = "/tmp/compress"
	}
	if c.Compress.TombstoneSize <= 0 {
		c.Compress.TombstoneSize = 1024
	}

	// FFmpeg默认值，与历史脚本保持一致
	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.FFmpeg.ProbePath == "" {
		c.FFmpeg.ProbePath = "ffprobe"
	}
	if c.FFmpeg.VideoCodec == "" {
		c.FFmpeg.VideoCodec = "libx264"
	}
	if c.FFmpeg.VideoPreset == "" {
		c.FFmpeg.VideoPreset = "medium"
	}
	if c.FFmpeg.PixelFormat == "" {
		c.FFmpeg.PixelFormat = "yuv420p"
	}
	if c.FFmpeg.Profile == "" {
		c.FFmpeg.Profile = "high"
	}
	if c.FFmpeg.AudioCodec == "" {
		c.FFmpeg.AudioCodec = "aac"
	}
	// 码率估算与 -b:a 必须使用同一个音频码率，ffmpeg.audio_bitrate 优先
	if c.FFmpeg.AudioBitrate == "" {
		c.FFmpeg.AudioBitrate = fmt.Sprintf("%.0fk", c.Compress.AudioBitrateKbps)
	} else {
		kbps, err := ParseBitrateKbps(c.FFmpeg.AudioBitrate)
		if err != nil {
			return fmt.Errorf("ffmpeg.audio_bitrate: %w", err)
		}
		c.Compress.AudioBitrateKbps = kbps
	}
	if c.FFmpeg.AudioChannels <= 0 {
		c.FFmpeg.AudioChannels = 2
	}
	if c.FFmpeg.AudioSampleRate <= 0 {
		c.FFmpeg.AudioSampleRate = 48000
	}
	if c.FFmpeg.Threads < 0 {
		c.FFmpeg.Threads = 0
	}

	if c.Notify.RedisChannelPrefix == "" {
		c.Notify.RedisChannelPrefix = "compress:notify"
	}
	if c.Notify.MinInterval <= 0 {
		c.Notify.MinInterval = 2 * time.Second
	}

	if c.Worker.WorkerID == "" {
		c.Worker.WorkerID = "compress-worker"
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}

	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "compress-service"
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
	if c.Etcd.DialTimeout <= 0 {
		c.Etcd.DialTimeout = 5 * time.Second
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "compress-service"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "compress-service-group"
	}
	if c.Kafka.Topics.Submissions == "" {
		c.Kafka.Topics.Submissions = "compress.submissions"
	}
	if c.Kafka.Topics.Events == "" {
		c.Kafka.Topics.Events = "compress.events"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	return nil
}

// ParseBitrateKbps 解析 ffmpeg 码率写法，如 "128k"、"1.5M"、"96000"
func ParseBitrateKbps(s string) (float64, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	scale := 0.001
	switch {
	case strings.HasSuffix(text, "k"):
		text, scale = strings.TrimSuffix(text, "k"), 1
	case strings.HasSuffix(text, "m"):
		text, scale = strings.TrimSuffix(text, "m"), 1000
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	return v * scale, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
