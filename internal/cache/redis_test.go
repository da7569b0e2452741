package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedOrder struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	data, _ := json.Marshal(cachedOrder{ID: 7, Status: "ORDER_PLACED"})
	require.NoError(t, mr.Set("order:7", string(data)))

	var got cachedOrder
	err := cache.Get(context.Background(), "order:7", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "ORDER_PLACED", got.Status)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	var got cachedOrder
	err := cache.Get(context.Background(), "order:404", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("order:1", `{"id":1,"sta`))

	var got cachedOrder
	err := cache.Get(context.Background(), "order:1", &got)
	require.ErrorContains(t, err, "unmarshal order:1 failed")
}

func TestPut_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	err := cache.Put(context.Background(), "order:3", cachedOrder{ID: 3})
	require.NoError(t, err)

	stored, err := mr.Get("order:3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"status":""}`, stored)

	ttl := mr.TTL("order:3")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute, "TTL should be at least base TTL")
	assert.LessOrEqual(t, ttl, 20*time.Minute, "TTL should be base + max jitter")
}

func TestEvict(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("cart:1", "{}"))
	require.NoError(t, mr.Set("cart:customer:9", "{}"))

	err := cache.Evict(context.Background(), "cart:1", "cart:customer:9", "cart:missing")
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:1"))
	assert.False(t, mr.Exists("cart:customer:9"))

	assert.NoError(t, cache.Evict(context.Background()))
}

func TestEvictPattern_RemovesOnlyListings(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	for page := 0; page < 250; page++ {
		require.NoError(t, mr.Set(ListKey("orders", page, 10, "id", "asc"), "[]"))
	}
	require.NoError(t, mr.Set("order:1", "{}"))
	require.NoError(t, mr.Set("carts:list:0:10:id:asc", "[]"))

	err := cache.EvictPattern(context.Background(), ListPattern("orders"))
	require.NoError(t, err)

	keys := mr.Keys()
	assert.ElementsMatch(t, []string{"order:1", "carts:list:0:10:id:asc"}, keys)
}

func TestEvictPattern_NoMatches(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set("order:1", "{}"))

	require.NoError(t, cache.EvictPattern(context.Background(), ListPattern("orders")))
	assert.True(t, mr.Exists("order:1"))
}

func TestKeys_Format(t *testing.T) {
	assert.Equal(t, "order:42", EntityKey("order", int64(42)))
	assert.Equal(t, "cart:customer:9", EntityKey("cart:customer", 9))
	assert.Equal(t, "orders:list:2:20:total:desc", ListKey("orders", 2, 20, "total", "desc"))
	assert.Equal(t, "orders:list:*", ListPattern("orders"))
}
