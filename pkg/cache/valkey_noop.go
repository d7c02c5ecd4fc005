package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platformbuilds/mirador-alert-engine/pkg/logger"
)

// noopValkey is the in-process fallback used when no Valkey is reachable.
// Results stay local to the engine instance; TTLs are honored lazily.
type noopValkey struct {
	mu      sync.RWMutex
	entries map[string]noopEntry
	logger  logger.Logger
}

type noopEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewNoopValkey(log logger.Logger) Valkey {
	log.Warn("Valkey unavailable, using in-memory fallback cache")
	return &noopValkey{
		entries: make(map[string]noopEntry),
		logger:  log,
	}
}

func (n *noopValkey) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	entry, ok := n.entries[key]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		n.mu.Lock()
		delete(n.entries, key)
		n.mu.Unlock()
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return entry.data, nil
}

func (n *noopValkey) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	n.mu.Lock()
	n.entries[key] = noopEntry{data: data, expiresAt: expires}
	n.mu.Unlock()
	return nil
}

func (n *noopValkey) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.entries, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkey) CacheClusterSet(ctx context.Context, scope string, clusters interface{}, ttl time.Duration) error {
	return n.Set(ctx, clusterSetKey(scope), clusters, ttl)
}

func (n *noopValkey) GetCachedClusterSet(ctx context.Context, scope string) ([]byte, error) {
	return n.Get(ctx, clusterSetKey(scope))
}

func (n *noopValkey) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	k := lockKey(key)
	n.mu.Lock()
	defer n.mu.Unlock()
	if entry, ok := n.entries[k]; ok {
		if entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt) {
			return false, nil
		}
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	n.entries[k] = noopEntry{data: []byte("locked"), expiresAt: expires}
	return true, nil
}

func (n *noopValkey) ReleaseLock(ctx context.Context, key string) error {
	return n.Delete(ctx, lockKey(key))
}

func (n *noopValkey) HealthCheck(ctx context.Context) error {
	return nil
}
