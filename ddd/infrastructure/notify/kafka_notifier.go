package notify

import (
	"context"

	"compress-service/ddd/domain/gateway"
	"compress-service/pkg/logger"
)

// JSONProducer kafka 生产者
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, v interface{}) error
}

// KafkaNotifier 将生命周期事件写入 topic，以任务ID为 key
type KafkaNotifier struct {
	producer JSONProducer
	topic    string
}

// NewKafkaNotifier 创建事件通知器
func NewKafkaNotifier(producer JSONProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n gateway.Notification) {
	ctx, cancel := deliverCtx(ctx)
	defer cancel()
	if err := k.producer.ProduceJSON(ctx, k.topic, n.JobID, n); err != nil {
		logger.Warn("kafka notify failed", map[string]interface{}{"job_id": n.JobID, "topic": k.topic, "error": err.Error()})
	}
}
