package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// MockBackend is an in-memory Backend that counts calls.
type MockBackend struct {
	mu      sync.Mutex
	rows    map[string]entry
	GetErr  error
	SetErr  error
	Gets    int
	Deletes int
}

func newMockBackend() *MockBackend {
	return &MockBackend{rows: make(map[string]entry)}
}

func (m *MockBackend) Get(ctx context.Context, key string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return "", time.Time{}, m.GetErr
	}
	e, ok := m.rows[key]
	if !ok {
		return "", time.Time{}, ErrMiss
	}
	return e.value, e.expiresAt, nil
}

func (m *MockBackend) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.rows[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (m *MockBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.rows, key)
	return nil
}

func (m *MockBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.rows {
		if !now.Before(e.expiresAt) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

type fixture struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache_SetGetBothLayers(t *testing.T) {
	backend := newMockBackend()
	c := New(backend, time.Hour, zap.NewNop(), WithMemoryLayer())
	ctx := context.Background()

	if err := c.Set(ctx, "k", fixture{Name: "PL", Count: 10}, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got fixture
	if !c.Get(ctx, "k", &got) {
		t.Fatal("Get() missed after Set")
	}
	if got.Name != "PL" || got.Count != 10 {
		t.Errorf("Get() = %+v", got)
	}
	if backend.Gets != 0 {
		t.Errorf("durable layer read %d times, want 0 on memory hit", backend.Gets)
	}
}

func TestCache_DurableHitRepopulatesMemory(t *testing.T) {
	backend := newMockBackend()
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	backend.rows["k"] = entry{value: `{"name":"SA","count":3}`, expiresAt: now.Add(time.Minute)}

	c := New(backend, time.Hour, zap.NewNop(), WithMemoryLayer(), WithClock(clock))
	ctx := context.Background()

	var got fixture
	if !c.Get(ctx, "k", &got) || got.Name != "SA" {
		t.Fatalf("first Get() = %+v", got)
	}
	if !c.Get(ctx, "k", &got) {
		t.Fatal("second Get() missed")
	}
	if backend.Gets != 1 {
		t.Errorf("durable reads = %d, want 1", backend.Gets)
	}
}

func TestCache_ExpiredDurableEntryRemoved(t *testing.T) {
	backend := newMockBackend()
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	backend.rows["k"] = entry{value: `{"name":"old"}`, expiresAt: now.Add(-time.Second)}

	c := New(backend, time.Hour, zap.NewNop(), WithClock(func() time.Time { return now }))

	var got fixture
	if c.Get(context.Background(), "k", &got) {
		t.Fatal("expired entry returned")
	}
	if _, ok := backend.rows["k"]; ok {
		t.Error("expired entry not deleted from durable layer")
	}
}

func TestCache_MemoryLayerExpires(t *testing.T) {
	backend := newMockBackend()
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	c := New(backend, time.Hour, zap.NewNop(), WithMemoryLayer(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if err := c.Set(ctx, "k", fixture{Name: "x"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)

	var got fixture
	if c.Get(ctx, "k", &got) {
		t.Fatal("expired memory entry returned")
	}
}

func TestCache_WorksWithoutMemoryLayer(t *testing.T) {
	c := New(newMockBackend(), time.Hour, zap.NewNop())
	ctx := context.Background()

	if err := c.Set(ctx, "k", 42, 0); err != nil {
		t.Fatal(err)
	}
	var got int
	if !c.Get(ctx, "k", &got) || got != 42 {
		t.Errorf("Get() = %d", got)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if c.Get(ctx, "k", &got) {
		t.Error("Get() hit after Delete")
	}
}

func TestCache_BackendErrorIsMiss(t *testing.T) {
	backend := newMockBackend()
	backend.GetErr = errors.New("db down")
	c := New(backend, time.Hour, zap.NewNop())

	var got fixture
	if c.Get(context.Background(), "k", &got) {
		t.Error("Get() hit while backend is failing")
	}
}

func TestWithCache(t *testing.T) {
	c := New(newMockBackend(), time.Hour, zap.NewNop(), WithMemoryLayer())
	ctx := context.Background()
	calls := 0
	produce := func(context.Context) ([]fixture, error) {
		calls++
		return []fixture{{Name: "BL1"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := WithCache(ctx, c, "fixtures", time.Hour, produce)
		if err != nil {
			t.Fatalf("WithCache() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "BL1" {
			t.Fatalf("WithCache() = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("producer called %d times, want 1", calls)
	}
}

func TestWithCache_ProducerErrorNotCached(t *testing.T) {
	c := New(newMockBackend(), time.Hour, zap.NewNop())
	ctx := context.Background()
	boom := errors.New("upstream")

	if _, err := WithCache(ctx, c, "k", time.Hour, func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("WithCache() error = %v, want %v", err, boom)
	}
	got, err := WithCache(ctx, c, "k", time.Hour, func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("WithCache() = %d, %v", got, err)
	}
}

func TestWithCache_SetFailureStillReturnsValue(t *testing.T) {
	backend := newMockBackend()
	backend.SetErr = errors.New("read-only")
	c := New(backend, time.Hour, zap.NewNop())

	got, err := WithCache(context.Background(), c, "k", time.Hour, func(context.Context) (string, error) { return "v", nil })
	if err != nil || got != "v" {
		t.Errorf("WithCache() = %q, %v", got, err)
	}
}

func TestCleanExpired(t *testing.T) {
	backend := newMockBackend()
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	backend.rows["old"] = entry{value: "1", expiresAt: now.Add(-time.Hour)}
	backend.rows["new"] = entry{value: "2", expiresAt: now.Add(time.Hour)}
	c := New(backend, time.Hour, zap.NewNop(), WithMemoryLayer(), WithClock(func() time.Time { return now }))

	n, err := c.CleanExpired(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if _, ok := backend.rows["new"]; !ok {
		t.Error("live entry removed")
	}
}
