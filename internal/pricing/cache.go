package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/redis"
)

const (
	cacheKeyPrefix   = "pricing:v1"
	defaultCacheSlot = "_default"
)

// RedisCache caches resolved records in Redis, one key per lookup
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache with the given TTL
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

// cacheEntry keeps the model that was asked for next to the answer, since a
// fallback to the type default is stored under the requested model's key.
type cacheEntry struct {
	Model  string         `json:"model"`
	Record *PricingRecord `json:"record"`
}

// Get returns the cached record for key, or nil on a miss
func (c *RedisCache) Get(ctx context.Context, key RecordKey) (*PricingRecord, error) {
	var entry cacheEntry
	err := c.client.GetJSON(ctx, cacheKey(key), &entry)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// slug collision
	if entry.Record == nil || !strings.EqualFold(entry.Model, key.VehicleModel) {
		return nil, nil
	}
	return entry.Record, nil
}

// Set stores rec as the answer for key
func (c *RedisCache) Set(ctx context.Context, key RecordKey, rec *PricingRecord) error {
	return c.client.SetJSON(ctx, cacheKey(key), cacheEntry{Model: key.VehicleModel, Record: rec}, c.ttl)
}

// InvalidateGroup removes every model and the default entry for the group
func (c *RedisCache) InvalidateGroup(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) error {
	_, err := c.client.DeleteByPattern(ctx, groupPrefix(category, vehicleType, tripType)+"*")
	return err
}

func groupPrefix(category fare.Category, vehicleType string, tripType fare.TripType) string {
	return strings.Join([]string{cacheKeyPrefix, string(category), slug(vehicleType), string(tripType)}, ":") + ":"
}

func cacheKey(key RecordKey) string {
	model := defaultCacheSlot
	if !key.ByDefault() {
		model = slug(key.VehicleModel)
	}
	return groupPrefix(key.Category, key.VehicleType, key.TripType) + model
}

// slug lowercases s and replaces anything outside [a-z0-9-] so the result is
// safe inside a SCAN pattern. Distinct inputs can collide, so entries carry
// the requested model and Get drops a mismatch.
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// noopCache is used when Redis is disabled
type noopCache struct{}

func (noopCache) Get(context.Context, RecordKey) (*PricingRecord, error) { return nil, nil }

func (noopCache) Set(context.Context, RecordKey, *PricingRecord) error { return nil }

func (noopCache) InvalidateGroup(context.Context, fare.Category, string, fare.TripType) error {
	return nil
}
