package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis used by the key-value adapter. Tests
// substitute a fake; redis.Client satisfies it directly.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// KVStore wraps the cache server with key namespacing. All logical keys are
// stored under the configured prefix to avoid collision with unrelated data.
type KVStore struct {
	rdb    RedisClient
	prefix string
}

// NewKVStore builds a KVStore over rdb. prefix is prepended to every key.
func NewKVStore(rdb RedisClient, prefix string) *KVStore {
	return &KVStore{rdb: rdb, prefix: prefix}
}

func (s *KVStore) namespaced(key string) string {
	return s.prefix + key
}

// Get returns the raw string stored at key. A missing key reports found=false
// with no error.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, s.namespaced(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value at key with the given TTL. A zero TTL stores without
// expiry.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.namespaced(key), value, ttl).Err()
}

// Delete removes the given keys.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = s.namespaced(k)
	}
	return s.rdb.Del(ctx, namespaced...).Err()
}

// Expire resets the TTL of key.
func (s *KVStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, s.namespaced(key), ttl).Err()
}

// Exists reports whether key is present.
func (s *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.namespaced(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeletePattern scans for keys matching the glob pattern and deletes them in
// batches. The pattern is namespaced like any other key.
func (s *KVStore) DeletePattern(ctx context.Context, pattern string) error {
	match := s.namespaced(pattern)
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the underlying connection.
func (s *KVStore) Close() error {
	return s.rdb.Close()
}
