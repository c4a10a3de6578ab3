package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/grcplane/grcplane-core/pkg/logger"
)

// noopValkey provides an in-memory, process-local fallback that satisfies
// Valkey when the external cache is unavailable. It is best-effort and
// intended for development and degraded operation; data is not shared across
// replicas and is lost on restart. TTLs are checked lazily on read.
type noopValkey struct {
	mu     sync.RWMutex
	m      map[string]noopEntry
	logger logger.Logger
}

type noopEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewNoopValkey(log logger.Logger) Valkey {
	log.Warn("Valkey cache unavailable; using in-memory fallback (noop)")
	return &noopValkey{m: make(map[string]noopEntry), logger: log}
}

func (n *noopValkey) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	e, ok := n.m[key]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		n.mu.Lock()
		delete(n.m, key)
		n.mu.Unlock()
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return e.data, nil
}

func (n *noopValkey) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		jb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b = jb
	}

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	n.mu.Lock()
	n.m[key] = noopEntry{data: b, expiresAt: expires}
	n.mu.Unlock()
	return nil
}

func (n *noopValkey) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkey) CacheQueryResult(ctx context.Context, queryHash string, result interface{}, ttl time.Duration) error {
	return n.Set(ctx, "query:"+queryHash, result, ttl)
}

func (n *noopValkey) GetCachedQueryResult(ctx context.Context, queryHash string) ([]byte, error) {
	return n.Get(ctx, "query:"+queryHash)
}
