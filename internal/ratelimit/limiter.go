package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratelimit_decisions_total",
	Help: "Quota checks by api and result",
}, []string{"api", "result"})

// Limiter enforces per-API quotas over minute and day windows.
//
// The CounterStore is authoritative. An optional in-process layer remembers
// counters that already reached their limit so repeated denials skip the
// durable round trip. Counters never decrease inside a window, which keeps
// that shortcut correct across processes.
type Limiter struct {
	store  CounterStore
	local  *exhaustedSet
	now    func() time.Time
	logger *zap.SugaredLogger
}

type Option func(*Limiter)

// WithLocalLayer enables the in-process denial shortcut.
func WithLocalLayer() Option {
	return func(l *Limiter) { l.local = &exhaustedSet{keys: make(map[string]time.Time)} }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store CounterStore, logger *zap.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		now:    time.Now,
		logger: logger.Sugar(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryConsume takes one unit of api's quota in the current window. It returns
// false when limit is already reached. When the counter store fails the
// request is allowed: the upstream API enforces its own quota anyway.
func (l *Limiter) TryConsume(ctx context.Context, api string, limit int, window Window) bool {
	now := l.now().UTC()
	key := Key(api, window, now)
	end := window.End(now)

	if l.local != nil && l.local.has(key, now) {
		decisionsTotal.WithLabelValues(api, "denied").Inc()
		return false
	}

	count, allowed, err := l.store.Consume(ctx, key, limit, end.Sub(now)+time.Minute)
	if err != nil {
		l.logger.Warnw("Rate limit store unavailable, allowing request", "api", api, "window", window, "error", err)
		decisionsTotal.WithLabelValues(api, "fail_open").Inc()
		return true
	}

	if l.local != nil && count >= int64(limit) {
		l.local.add(key, end)
	}

	if !allowed {
		l.logger.Infow("Rate limit reached", "api", api, "window", window, "limit", limit)
		decisionsTotal.WithLabelValues(api, "denied").Inc()
		return false
	}
	decisionsTotal.WithLabelValues(api, "allowed").Inc()
	return true
}

// CurrentUsage returns how many units api consumed in the current window.
func (l *Limiter) CurrentUsage(ctx context.Context, api string, window Window) int64 {
	count, err := l.store.Count(ctx, Key(api, window, l.now()))
	if err != nil {
		l.logger.Warnw("Failed to read rate limit usage", "api", api, "window", window, "error", err)
		return 0
	}
	return count
}

type exhaustedSet struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func (s *exhaustedSet) has(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.keys[key]
	if !ok {
		return false
	}
	if !now.Before(exp) {
		delete(s.keys, key)
		return false
	}
	return true
}

func (s *exhaustedSet) add(key string, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = expires
}
