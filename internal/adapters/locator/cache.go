package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Store keeps the last resolved location for a while.
type Store interface {
	Load(ctx context.Context) (domain.Location, bool, error)
	Save(ctx context.Context, loc domain.Location, ttl time.Duration) error
}

// Cache serves the stored location while fresh and asks the upstream
// locator otherwise. Store failures never fail a lookup.
type Cache struct {
	upstream ports.Locator
	store    Store
	ttl      time.Duration
	log      zerolog.Logger
}

var _ ports.Locator = (*Cache)(nil)

func NewCache(upstream ports.Locator, store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{upstream: upstream, store: store, ttl: ttl, log: log.With().Str("component", "locator_cache").Logger()}
}

func (c *Cache) CurrentLocation(ctx context.Context) (domain.Location, error) {
	if c.ttl > 0 {
		loc, ok, err := c.store.Load(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("location_cache_load_failed")
		}
		if ok {
			return loc, nil
		}
	}

	loc, err := c.upstream.CurrentLocation(ctx)
	if err != nil {
		return domain.Location{}, err
	}
	if c.ttl > 0 {
		if err := c.store.Save(ctx, loc, c.ttl); err != nil {
			c.log.Warn().Err(err).Msg("location_cache_save_failed")
		}
	}
	return loc, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	loc     domain.Location
	expires time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Load(context.Context) (domain.Location, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expires.IsZero() || !m.now().Before(m.expires) {
		return domain.Location{}, false, nil
	}
	return m.loc, true, nil
}

func (m *MemoryStore) Save(_ context.Context, loc domain.Location, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loc = loc
	m.expires = m.now().Add(ttl)
	return nil
}

// kv is the part of *redis.Client the RedisStore uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore shares the cached location between processes.
type RedisStore struct {
	rdb kv
	key string
}

func NewRedisStore(rdb kv, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

// DialRedis connects and pings the configured server.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (r *RedisStore) Load(ctx context.Context) (domain.Location, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Location{}, false, nil
	}
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	var loc domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return domain.Location{}, false, fmt.Errorf("decode cached location: %w", err)
	}
	return loc, true, nil
}

func (r *RedisStore) Save(ctx context.Context, loc domain.Location, ttl time.Duration) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
