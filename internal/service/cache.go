package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"golang.org/x/sync/singleflight"
)

const (
	ordersListing     = "orders"
	invalidateTimeout = time.Second
)

func cartKey(cartID int64) string {
	return cache.EntityKey("cart", cartID)
}

func customerCartKey(customerID int64) string {
	return cache.EntityKey("cart:customer", customerID)
}

func orderKey(orderID int64) string {
	return cache.EntityKey("order", orderID)
}

func customerOrdersListing(customerID int64) string {
	return fmt.Sprintf("customer:%d:orders", customerID)
}

// readThrough serves key from the cache, loading and storing it on a miss.
// Concurrent misses for one key share a single load.
func readThrough[T any](ctx context.Context, sfg *singleflight.Group, c cache.Cache, log *slog.Logger, key string, load func(context.Context) (T, error)) (T, error) {
	v, err, _ := sfg.Do(key, func() (any, error) {
		var cached T
		err := c.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("cache get error", "key", key, "error", err)
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.Put(ctx, key, loaded); err != nil {
			log.Warn("cache set error", "key", key, "error", err)
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

type invalidator struct {
	cache cache.Cache
	log   *slog.Logger
}

func (i invalidator) evict(keys ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := i.cache.Evict(ctx, keys...); err != nil {
		i.log.Warn("cache invalidate error", "keys", keys, "error", err)
	}
}

func (i invalidator) evictListings(listings ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	for _, listing := range listings {
		if err := i.cache.EvictPattern(ctx, cache.ListPattern(listing)); err != nil {
			i.log.Warn("cache invalidate error", "pattern", cache.ListPattern(listing), "error", err)
		}
	}
}

func (i invalidator) cartChanged(cartID, customerID int64) {
	i.evict(cartKey(cartID), customerCartKey(customerID))
}

func (i invalidator) orderChanged(orderID, customerID int64) {
	i.evict(orderKey(orderID))
	i.evictListings(ordersListing, customerOrdersListing(customerID))
}
