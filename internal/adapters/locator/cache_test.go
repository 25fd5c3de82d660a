package locator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

type countingLocator struct {
	calls int
	err   error
}

func (c *countingLocator) CurrentLocation(context.Context) (domain.Location, error) {
	c.calls++
	if c.err != nil {
		return domain.Location{}, c.err
	}
	return domain.Location{Coordinate: domain.Coordinate{Lat: 37.7, Lng: -122.4}, City: "San Francisco"}, nil
}

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     time.Duration
	failGet bool
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string]string{}
	}
	f.data[key] = string(value.([]byte))
	f.ttl = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestCacheWithMemoryStore(t *testing.T) {
	up := &countingLocator{}
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	cache := NewCache(up, store, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		loc, err := cache.CurrentLocation(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "San Francisco", loc.City)
	}
	assert.Equal(t, 1, up.calls)

	now = now.Add(2 * time.Minute)
	_, err := cache.CurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}

func TestCacheWithRedisStore(t *testing.T) {
	up := &countingLocator{}
	kv := &fakeKV{}
	cache := NewCache(up, NewRedisStore(kv, "nurobuckle:location"), 5*time.Minute, zerolog.Nop())

	first, err := cache.CurrentLocation(context.Background())
	require.NoError(t, err)
	second, err := cache.CurrentLocation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, 5*time.Minute, kv.ttl)
	assert.Contains(t, kv.data["nurobuckle:location"], `"city":"San Francisco"`)
}

func TestCacheFallsThroughStoreErrors(t *testing.T) {
	up := &countingLocator{}
	cache := NewCache(up, NewRedisStore(&fakeKV{failGet: true}, "k"), time.Minute, zerolog.Nop())

	_, err := cache.CurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
}

func TestCachePropagatesUpstreamError(t *testing.T) {
	cause := errors.New("ipinfo down")
	cache := NewCache(&countingLocator{err: cause}, NewMemoryStore(), time.Minute, zerolog.Nop())

	_, err := cache.CurrentLocation(context.Background())
	assert.ErrorIs(t, err, cause)
}
