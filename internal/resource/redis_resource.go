package resource

import (
	"context"
	"sync"
	"time"

	"compress-service/pkg/config"
	"compress-service/pkg/redisclient"
)

var (
	redisResourceOnce sync.Once
	redisSingleton    *RedisResource
)

// RedisResource manages the lifecycle of the shared Redis client.
type RedisResource struct {
	client *redisclient.Client
}

// DefaultRedisResource returns the global Redis resource instance.
func DefaultRedisResource() *RedisResource {
	redisResourceOnce.Do(func() {
		redisSingleton = &RedisResource{}
	})
	return redisSingleton
}

func (r *RedisResource) Name() string { return "redis" }

func (r *RedisResource) Enabled(cfg *config.Config) bool { return cfg.Redis.Enabled }

// Open establishes the Redis connection.
func (r *RedisResource) Open(cfg *config.Config) error {
	if r.client != nil {
		return nil
	}
	timeout := cfg.Redis.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	r.client = client
	return nil
}

// Close tidy ups the underlying Redis client.
func (r *RedisResource) Close() {
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
}

// Client returns the wrapped client, nil when redis is disabled.
func (r *RedisResource) Client() *redisclient.Client {
	return r.client
}
