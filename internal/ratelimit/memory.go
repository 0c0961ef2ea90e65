package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window is the fixed span generation requests are counted against.
const window = time.Second

// MemoryLimiter counts generation requests per user key in fixed one-second
// windows held in process memory. It is the fallback backend when Redis is
// unconfigured or unreachable, so its limits are per instance rather than
// fleet-wide.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowCount
}

type windowCount struct {
	start int64 // Window start in unix seconds.
	used  int   // Requests granted in this window.
}

// NewMemoryLimiter constructs an empty MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*windowCount)}
}

// Allow grants the request when fewer than limit requests were granted for
// the key in the current window. A non-positive limit disables limiting.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	current := now.Unix()
	reset := now.Truncate(window).Add(window).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.windows[key]
	if !ok || wc.start != current {
		l.pruneLocked(current)
		wc = &windowCount{start: current}
		l.windows[key] = wc
	}
	if wc.used >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	wc.used++
	return Result{Allowed: true, Remaining: limit - wc.used, Reset: reset}, nil
}

// pruneLocked drops counters from past windows so idle user keys do not
// accumulate. Callers hold l.mu.
func (l *MemoryLimiter) pruneLocked(current int64) {
	for key, wc := range l.windows {
		if wc.start != current {
			delete(l.windows, key)
		}
	}
}
