package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMiss is returned by a Backend when a key is absent.
var ErrMiss = errors.New("cache miss")

var lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cache_lookups_total",
	Help: "Cache lookups by layer and result",
}, []string{"layer", "result"})

// Backend is the durable layer. Values are JSON text.
type Backend interface {
	Get(ctx context.Context, key string) (value string, expiresAt time.Time, err error)
	Set(ctx context.Context, key, value string, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a memoization layer over a durable Backend with an optional
// process-local layer in front. Entries expire by TTL only.
type Cache struct {
	durable    Backend
	mu         sync.RWMutex
	memory     map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
	logger     *zap.SugaredLogger
}

type Option func(*Cache)

// WithMemoryLayer enables the process-local layer.
func WithMemoryLayer() Option {
	return func(c *Cache) { c.memory = make(map[string]entry) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(durable Backend, defaultTTL time.Duration, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		durable:    durable,
		defaultTTL: defaultTTL,
		now:        time.Now,
		logger:     logger.Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get decodes the value stored under key into dest and reports whether it was found.
// Backend failures are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	now := c.now()

	if c.memory != nil {
		c.mu.RLock()
		e, ok := c.memory[key]
		c.mu.RUnlock()
		if ok && now.Before(e.expiresAt) {
			if err := json.Unmarshal([]byte(e.value), dest); err == nil {
				lookupsTotal.WithLabelValues("memory", "hit").Inc()
				return true
			}
		}
		if ok {
			c.forgetLocal(key)
		}
		lookupsTotal.WithLabelValues("memory", "miss").Inc()
	}

	value, expiresAt, err := c.durable.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warnw("Cache backend read failed", "key", key, "error", err)
		}
		lookupsTotal.WithLabelValues("durable", "miss").Inc()
		return false
	}

	if !now.Before(expiresAt) {
		lookupsTotal.WithLabelValues("durable", "expired").Inc()
		if err := c.durable.Delete(ctx, key); err != nil {
			c.logger.Warnw("Failed to delete expired cache entry", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		c.logger.Warnw("Discarding undecodable cache entry", "key", key, "error", err)
		return false
	}

	if c.memory != nil {
		c.mu.Lock()
		c.memory[key] = entry{value: value, expiresAt: expiresAt}
		c.mu.Unlock()
	}
	lookupsTotal.WithLabelValues("durable", "hit").Inc()
	return true
}

// Set stores value under key in both layers. A zero ttl uses the default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	expiresAt := c.now().Add(ttl)

	if c.memory != nil {
		c.mu.Lock()
		c.memory[key] = entry{value: string(data), expiresAt: expiresAt}
		c.mu.Unlock()
	}

	if err := c.durable.Set(ctx, key, string(data), expiresAt); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete removes key from both layers.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.forgetLocal(key)
	if err := c.durable.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// CleanExpired drops expired entries from both layers and returns how many
// durable rows were removed.
func (c *Cache) CleanExpired(ctx context.Context) (int64, error) {
	now := c.now()
	if c.memory != nil {
		c.mu.Lock()
		for k, e := range c.memory {
			if !now.Before(e.expiresAt) {
				delete(c.memory, k)
			}
		}
		c.mu.Unlock()
	}
	n, err := c.durable.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}
	return n, nil
}

func (c *Cache) forgetLocal(key string) {
	if c.memory == nil {
		return
	}
	c.mu.Lock()
	delete(c.memory, key)
	c.mu.Unlock()
}

// WithCache returns the cached value for key or computes it with produce and
// stores it. Storage failures are logged; the computed value is still returned.
func WithCache[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, produce func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := produce(ctx)
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warnw("Failed to cache computed value", "key", key, "error", err)
	}
	return value, nil
}
