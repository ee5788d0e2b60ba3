// Package ratelimit implements fixed-window request counting per client key.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func result(count int64, limit int, ttl time.Duration) Result {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: ttl,
	}
}

// MemoryLimiter keeps windows in process memory. Used when no Redis is
// configured; counts are per instance.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*memoryWindow),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.sweep(now)
		w = &memoryWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return result(w.count, l.limit, w.resetAt.Sub(now)), nil
}

// sweep drops expired windows. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
