package notify

import (
	"context"

	"compress-service/ddd/domain/gateway"
	"compress-service/pkg/logger"
)

// JSONPublisher redis pub/sub 发布
type JSONPublisher interface {
	PublishJSON(ctx context.Context, channel string, v interface{}) error
}

// RedisNotifier 按用户频道发布状态消息
type RedisNotifier struct {
	client JSONPublisher
	prefix string
}

// NewRedisNotifier 频道名为 prefix:ownerID
func NewRedisNotifier(client JSONPublisher, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

// Channel 用户频道
func (r *RedisNotifier) Channel(ownerID string) string {
	return r.prefix + ":" + ownerID
}

func (r *RedisNotifier) Notify(ctx context.Context, n gateway.Notification) {
	ctx, cancel := deliverCtx(ctx)
	defer cancel()
	if err := r.client.PublishJSON(ctx, r.Channel(n.OwnerID), n); err != nil {
		logger.Warn("redis notify failed", map[string]interface{}{"job_id": n.JobID, "error": err.Error()})
	}
}
