package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const availabilityKeyPrefix = "stock:available:"

// AvailabilityCache caches per-product availability totals in Redis for the
// storefront display path. Values are advisory: the allocation transaction
// is the only source of truth, so a short TTL bounds staleness and mutators
// invalidate keys after commit.
type AvailabilityCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewAvailabilityCache creates a Redis-backed availability cache.
func NewAvailabilityCache(client *goredis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(productID string) string {
	return availabilityKeyPrefix + productID
}

// Get returns the cached availability for a product and whether it was found.
func (c *AvailabilityCache) Get(ctx context.Context, productID string) (int, bool, error) {
	val, err := c.client.Get(ctx, availabilityKey(productID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get availability from cache: %w", err)
	}

	available, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached availability %q: %w", val, err)
	}

	return available, true, nil
}

// Set stores the availability for a product with the configured TTL.
func (c *AvailabilityCache) Set(ctx context.Context, productID string, available int) error {
	if err := c.client.Set(ctx, availabilityKey(productID), strconv.Itoa(available), c.ttl).Err(); err != nil {
		return fmt.Errorf("set availability in cache: %w", err)
	}
	return nil
}

// Invalidate removes cached availability for the given products.
func (c *AvailabilityCache) Invalidate(ctx context.Context, productIDs ...string) error {
	if len(productIDs) == 0 {
		return nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = availabilityKey(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate availability cache: %w", err)
	}
	return nil
}
