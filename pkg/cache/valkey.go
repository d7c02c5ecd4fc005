package cache

import (
	"context"
	"fmt"
	"time"
)

// Valkey is the engine's best-effort result cache. Correlation passes push
// their published cluster sets here with a TTL so the query layer can read
// them without touching the engine; nothing in the engine depends on reads
// succeeding.
type Valkey interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// CacheClusterSet stores the cluster set published for a correlation
	// scope (window + filters). GetCachedClusterSet returns the raw JSON.
	CacheClusterSet(ctx context.Context, scope string, clusters interface{}, ttl time.Duration) error
	GetCachedClusterSet(ctx context.Context, scope string) ([]byte, error)

	// AcquireLock/ReleaseLock coordinate periodic sweeps between engine
	// replicas sharing one Valkey. Lock loss is tolerated; a duplicate
	// pass is wasted work, not corruption.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	HealthCheck(ctx context.Context) error
}

func clusterSetKey(scope string) string {
	return fmt.Sprintf("alert_clusters:%s", scope)
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}
