package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements RedisClient over an in-memory map. Setting failWith
// makes every call return that error, simulating a cache server outage.
type fakeRedis struct {
	mu       sync.Mutex
	data     map[string]string
	failWith error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewStringResult("", f.failWith)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewStatusResult("", f.failWith)
	}
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewIntResult(0, f.failWith)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.failWith != nil {
		return redis.NewBoolResult(false, f.failWith)
	}
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewIntResult(0, f.failWith)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return redis.NewScanCmdResult(nil, 0, f.failWith)
	}
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestSettingsCache_SetGet(t *testing.T) {
	rdb := newFakeRedis()
	c := NewSettingsCache(rdb)
	ctx := context.Background()

	value := map[string]any{"provider": "stripe", "enabled": true}
	require.NoError(t, c.Set(ctx, "payment_gateway", value, 0))

	got, err := c.Get(ctx, "payment_gateway")
	require.NoError(t, err)
	assert.Equal(t, "stripe", got["provider"])
	assert.Equal(t, true, got["enabled"])

	// Physically stored under the settings prefix.
	_, ok := rdb.data["settings:payment_gateway"]
	assert.True(t, ok)
}

func TestSettingsCache_GetMiss(t *testing.T) {
	c := NewSettingsCache(newFakeRedis())

	got, err := c.Get(context.Background(), "never-written")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettingsCache_GracefulDegradation(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failWith = errors.New("connection refused")
	c := NewSettingsCache(rdb)
	ctx := context.Background()

	got, err := c.Get(ctx, "payment_gateway")
	assert.Nil(t, got)
	assert.Error(t, err)

	// Writes and invalidations report the error but never panic; callers
	// discard these errors by design.
	assert.Error(t, c.Set(ctx, "payment_gateway", map[string]any{"a": 1}, 0))
	assert.Error(t, c.Invalidate(ctx, "payment_gateway"))
}

func TestSettingsCache_CorruptEntryBehavesLikeMiss(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["settings:branding"] = "{not json"
	c := NewSettingsCache(rdb)

	got, err := c.Get(context.Background(), "branding")
	assert.NoError(t, err)
	assert.Nil(t, got)

	// The corrupt entry is dropped so the next write rebuilds it.
	_, ok := rdb.data["settings:branding"]
	assert.False(t, ok)
}

func TestSettingsCache_InvalidateCascades(t *testing.T) {
	rdb := newFakeRedis()
	c := NewSettingsCache(rdb)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "branding", map[string]any{"v": 1}, 0))
	require.NoError(t, c.Set(ctx, "branding:tenant:t1", map[string]any{"v": 2}, 0))
	require.NoError(t, c.Set(ctx, "branding:tenant:t2", map[string]any{"v": 3}, 0))
	require.NoError(t, c.Set(ctx, "email", map[string]any{"v": 4}, 0))

	require.NoError(t, c.Invalidate(ctx, "branding"))

	for _, key := range []string{"branding", "branding:tenant:t1", "branding:tenant:t2"} {
		got, err := c.Get(ctx, key)
		assert.NoError(t, err)
		assert.Nil(t, got, "key %s should have been invalidated", key)
	}

	// Unrelated keys survive.
	got, err := c.Get(ctx, "email")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestKVStore_Namespacing(t *testing.T) {
	rdb := newFakeRedis()
	kv := NewKVStore(rdb, "other:")
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	_, ok := rdb.data["other:k"]
	assert.True(t, ok)

	exists, err := kv.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	val, found, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)
}
