package cache

import (
	"context"
	"errors"
	"fmt"
)

// Cache stores JSON-encodable values by key. Every write path in the service
// layer evicts the keys it made stale.
type Cache interface {
	// Get decodes the value stored under key into dst. It returns ErrCacheMiss
	// when the key is absent.
	Get(ctx context.Context, key string, dst any) error
	Put(ctx context.Context, key string, value any) error
	Evict(ctx context.Context, keys ...string) error
	// EvictPattern removes every key matching a glob pattern.
	EvictPattern(ctx context.Context, pattern string) error
}

var ErrCacheMiss = errors.New("cache miss")

// EntityKey is the key of a single entity, e.g. "order:42".
func EntityKey(entity string, id any) string {
	return fmt.Sprintf("%s:%v", entity, id)
}

// ListKey is the key of one page of a listing,
// e.g. "orders:list:0:10:id:asc".
func ListKey(entities string, page, size int, sortBy, sortOrder string) string {
	return fmt.Sprintf("%s:list:%d:%d:%s:%s", entities, page, size, sortBy, sortOrder)
}

// ListPattern matches every listing key of entities.
func ListPattern(entities string) string {
	return entities + ":list:*"
}
