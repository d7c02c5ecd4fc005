package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platformbuilds/mirador-alert-engine/pkg/logger"
)

// valkeyClusterImpl talks to a Valkey/Redis cluster.
type valkeyClusterImpl struct {
	client *redis.ClusterClient
	logger logger.Logger
	ttl    time.Duration
}

// NewValkeyCluster connects to the given cluster nodes. The caller decides
// what to do on failure; the engine side falls back to the noop cache.
func NewValkeyCluster(nodes []string, password string, defaultTTL time.Duration, log logger.Logger) (Valkey, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        nodes,
		Password:     password,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to valkey cluster: %w", err)
	}

	log.Info("Connected to Valkey cluster", "nodes", len(nodes))
	return &valkeyClusterImpl{client: client, logger: log, ttl: defaultTTL}, nil
}

func (v *valkeyClusterImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return b, err
}

func (v *valkeyClusterImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	return v.client.Set(ctx, key, data, ttl).Err()
}

func (v *valkeyClusterImpl) Delete(ctx context.Context, key string) error {
	return v.client.Del(ctx, key).Err()
}

func (v *valkeyClusterImpl) CacheClusterSet(ctx context.Context, scope string, clusters interface{}, ttl time.Duration) error {
	return v.Set(ctx, clusterSetKey(scope), clusters, ttl)
}

func (v *valkeyClusterImpl) GetCachedClusterSet(ctx context.Context, scope string) ([]byte, error) {
	return v.Get(ctx, clusterSetKey(scope))
}

func (v *valkeyClusterImpl) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return v.client.SetNX(ctx, lockKey(key), "locked", ttl).Result()
}

func (v *valkeyClusterImpl) ReleaseLock(ctx context.Context, key string) error {
	return v.client.Del(ctx, lockKey(key)).Err()
}

func (v *valkeyClusterImpl) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = c
	}
	return v.client.Ping(ctx).Err()
}
