package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"compress-service/pkg/config"
	"compress-service/pkg/logger"
)

// Instance 注册到 etcd 的实例信息
type Instance struct {
	ServiceID     string    `json:"service_id"`
	Addr          string    `json:"addr"`
	QueueCapacity int       `json:"queue_capacity"`
	StartedAt     time.Time `json:"started_at"`
}

// ServiceRegistry registers the service instance into etcd under a lease.
type ServiceRegistry struct {
	client   *clientv3.Client
	key      string
	instance Instance
	ttl      int64
	leaseID  clientv3.LeaseID
	cancel   context.CancelFunc
	done     chan struct{}
}

// Key returns the etcd key used for an instance.
func Key(serviceName, serviceID string) string {
	return fmt.Sprintf("/services/%s/%s", serviceName, serviceID)
}

// NewServiceRegistry creates a new ServiceRegistry instance.
func NewServiceRegistry(etcdCfg config.EtcdConfig, svcCfg config.ServiceRegistryConfig, inst Instance) (*ServiceRegistry, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   etcdCfg.Endpoints,
		DialTimeout: etcdCfg.DialTimeout,
		Username:    etcdCfg.Username,
		Password:    etcdCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	if inst.ServiceID == "" {
		inst.ServiceID = svcCfg.ServiceID
	}
	ttl := int64(svcCfg.TTL.Seconds())
	if ttl <= 0 {
		ttl = 30
	}
	return &ServiceRegistry{
		client:   client,
		key:      Key(svcCfg.ServiceName, inst.ServiceID),
		instance: inst,
		ttl:      ttl,
	}, nil
}

func (r *ServiceRegistry) Name() string { return "etcd-registry" }

// Start grants a lease, writes the instance and keeps the lease alive until Stop.
func (r *ServiceRegistry) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	leaseResp, err := r.client.Grant(runCtx, r.ttl)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	payload, err := json.Marshal(r.instance)
	if err != nil {
		cancel()
		return err
	}
	if _, err := r.client.Put(runCtx, r.key, string(payload), clientv3.WithLease(r.leaseID)); err != nil {
		cancel()
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := r.client.KeepAlive(runCtx, r.leaseID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to keep alive lease: %w", err)
	}
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.drain(runCtx, ch)

	logger.Info("service registered", map[string]interface{}{"key": r.key, "addr": r.instance.Addr})
	return nil
}

func (r *ServiceRegistry) drain(ctx context.Context, ch <-chan *clientv3.LeaseKeepAliveResponse) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ka := <-ch:
			if ka == nil {
				logger.Warn("etcd keepalive channel closed", map[string]interface{}{"key": r.key})
				return
			}
		}
	}
}

// Stop revokes the lease and closes the client.
func (r *ServiceRegistry) Stop() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	if r.leaseID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
			logger.Warn("failed to revoke lease", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close etcd client: %w", err)
	}
	logger.Info("service deregistered", map[string]interface{}{"key": r.key})
	return nil
}
