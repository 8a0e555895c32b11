package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is the durable, authoritative home of quota counters.
type CounterStore interface {
	// Consume increments key when its value is below limit. It returns the
	// counter value after the call and whether the increment happened.
	Consume(ctx context.Context, key string, limit int, ttl time.Duration) (int64, bool, error)
	// Count returns the current value of key, 0 when absent.
	Count(ctx context.Context, key string) (int64, error)
}

// RedisClient is the subset of go-redis used by RedisCounterStore.
type RedisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// consumeScript makes check-and-increment atomic on the server.
// KEYS[1] counter, ARGV[1] limit, ARGV[2] ttl in ms.
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {current, 1}
`)

// RedisCounterStore keeps counters in Redis with window-scoped expiry.
type RedisCounterStore struct {
	client RedisClient
}

func NewRedisCounterStore(client RedisClient) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Consume(ctx context.Context, key string, limit int, ttl time.Duration) (int64, bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, errors.New("unexpected consume script reply")
	}
	return res[0], res[1] == 1, nil
}

func (s *RedisCounterStore) Count(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

type counter struct {
	count   int64
	expires time.Time
}

// MemoryCounterStore is a process-local CounterStore, used when counters do
// not need to be shared between processes and in tests.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]counter
	now      func() time.Time
}

func NewMemoryCounterStore(now func() time.Time) *MemoryCounterStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounterStore{counters: make(map[string]counter), now: now}
}

func (s *MemoryCounterStore) Consume(_ context.Context, key string, limit int, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expires) {
		c = counter{expires: now.Add(ttl)}
	}
	if c.count >= int64(limit) {
		s.counters[key] = c
		return c.count, false, nil
	}
	c.count++
	s.counters[key] = c
	return c.count, true, nil
}

func (s *MemoryCounterStore) Count(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expires) {
		return 0, nil
	}
	return c.count, nil
}
