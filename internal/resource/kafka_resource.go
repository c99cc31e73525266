package resource

import (
	"sync"

	"compress-service/pkg/config"
	"compress-service/pkg/kafka"
	"compress-service/pkg/logger"
)

var (
	kafkaResourceOnce sync.Once
	kafkaSingleton    *KafkaResource
)

// KafkaResource 管理 Kafka 客户端
type KafkaResource struct {
	client *kafka.Client
}

// DefaultKafkaResource 获取 Kafka 资源单例
func DefaultKafkaResource() *KafkaResource {
	kafkaResourceOnce.Do(func() {
		kafkaSingleton = &KafkaResource{}
	})
	return kafkaSingleton
}

func (r *KafkaResource) Name() string { return "kafka" }

func (r *KafkaResource) Enabled(cfg *config.Config) bool { return cfg.Kafka.Enabled }

// Open 创建客户端并确保 topic 存在
func (r *KafkaResource) Open(cfg *config.Config) error {
	if r.client != nil {
		return nil
	}
	r.client = kafka.NewClient(cfg.Kafka)
	for _, topic := range []string{cfg.Kafka.Topics.Submissions, cfg.Kafka.Topics.Events} {
		if err := r.client.EnsureTopic(topic, 1, 1); err != nil {
			// topic 可能已由运维创建
			logger.Warnf("ensure kafka topic %s failed: %v", topic, err)
		}
	}
	return nil
}

func (r *KafkaResource) Close() {
	if r.client != nil {
		r.client.Close()
		r.client = nil
	}
}

// Client returns the kafka client, nil when kafka is disabled.
func (r *KafkaResource) Client() *kafka.Client {
	return r.client
}
