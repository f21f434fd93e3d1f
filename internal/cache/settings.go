package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/settings-management-service/internal/monitoring"
)

// Prefix under which every settings cache entry lives.
const settingsPrefix = "settings:"

// DefaultTTL applies when the caller does not override the expiry.
const DefaultTTL = 3600 * time.Second

// SettingsCache is the cache-aside layer for settings values. The cache is
// advisory: every method returns its error for the caller to discard, and a
// cache outage must only ever cost a storage round-trip, never correctness.
type SettingsCache struct {
	kv  *KVStore
	ttl time.Duration
}

// NewSettingsCache builds the settings cache over rdb with DefaultTTL.
func NewSettingsCache(rdb RedisClient) *SettingsCache {
	return NewSettingsCacheWithTTL(rdb, DefaultTTL)
}

// NewSettingsCacheWithTTL builds the settings cache with a custom default
// expiry. A non-positive ttl falls back to DefaultTTL.
func NewSettingsCacheWithTTL(rdb RedisClient, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SettingsCache{
		kv:  NewKVStore(rdb, settingsPrefix),
		ttl: ttl,
	}
}

// Get returns the cached value for key, or nil on a miss. The error is
// informational; a nil value with a non-nil error means the cache was
// unreachable and the caller should fall through to storage.
func (c *SettingsCache) Get(ctx context.Context, key string) (map[string]any, error) {
	raw, found, err := c.kv.Get(ctx, key)
	if err != nil {
		monitoring.CacheMisses.Inc()
		log.Warn().Err(err).Str("key", key).Msg("settings cache read failed")
		return nil, err
	}
	if !found {
		monitoring.CacheMisses.Inc()
		return nil, nil
	}

	var value map[string]any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		// A corrupt entry behaves like a miss; drop it so it gets rebuilt.
		log.Warn().Err(err).Str("key", key).Msg("settings cache entry corrupt, dropping")
		_ = c.kv.Delete(ctx, key)
		monitoring.CacheMisses.Inc()
		return nil, nil
	}
	monitoring.CacheHits.Inc()
	return value, nil
}

// Set stores value at key. ttl overrides the default when positive.
func (c *SettingsCache) Set(ctx context.Context, key string, value map[string]any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.kv.Set(ctx, key, string(data), ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("settings cache write failed")
		return err
	}
	return nil
}

// Invalidate removes key and cascades to every sub-key under key:*, since
// tenant-scoped variants share the prefix.
func (c *SettingsCache) Invalidate(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("settings cache invalidation failed")
		return err
	}
	return c.InvalidatePattern(ctx, key+":*")
}

// InvalidatePattern removes every key matching the glob pattern.
func (c *SettingsCache) InvalidatePattern(ctx context.Context, pattern string) error {
	if err := c.kv.DeletePattern(ctx, pattern); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("settings cache pattern invalidation failed")
		return err
	}
	return nil
}
