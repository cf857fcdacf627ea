// Package cache stores catalog query results keyed by query parameters.
// Values are JSON encoded so the in-memory and Redis backends behave the same.
package cache

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type MemoryCache struct {
	entries *lru.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := c.entries.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.entries.Remove(key)
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries.Add(key, raw)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
