package roles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const listingCacheKey = "roles:listing"

// ListingCache keeps the role listing in Redis so the roles screen does not
// hit Postgres on every paint. Role mutations invalidate it; permission
// resolution never reads it.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewListingCache constructs a ListingCache.
func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{client: client, ttl: ttl}
}

// GetOrLoad returns the cached listing, loading and caching it on a miss.
// Concurrent misses are collapsed into a single load. Cache failures fall
// through to the loader.
func (c *ListingCache) GetOrLoad(ctx context.Context, load func(context.Context) ([]Role, error)) ([]Role, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	if cached, ok := c.get(ctx); ok {
		return cached, nil
	}
	result, err, _ := c.group.Do(listingCacheKey, func() (any, error) {
		if cached, ok := c.get(ctx); ok {
			return cached, nil
		}
		roles, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, roles)
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Role), nil
}

// Invalidate drops the cached listing.
func (c *ListingCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, listingCacheKey).Err()
}

func (c *ListingCache) get(ctx context.Context) ([]Role, bool) {
	payload, err := c.client.Get(ctx, listingCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var roles []Role
	if err := json.Unmarshal(payload, &roles); err != nil {
		return nil, false
	}
	return roles, true
}

func (c *ListingCache) set(ctx context.Context, roles []Role) {
	payload, err := json.Marshal(roles)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listingCacheKey, payload, c.ttl).Err(); err != nil && !errors.Is(err, context.Canceled) {
		return
	}
}
