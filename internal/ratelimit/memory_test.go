package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterEnforcesLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(ctx, "u:alice", 2, now)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	result, err := limiter.Allow(ctx, "u:alice", 2, now)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected third request in window to be denied")
	}
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if result, _ := limiter.Allow(ctx, "u:bob", 1, now); !result.Allowed {
		t.Fatalf("expected first request allowed")
	}
	if result, _ := limiter.Allow(ctx, "u:bob", 1, now); result.Allowed {
		t.Fatalf("expected second request denied in same window")
	}
	if result, _ := limiter.Allow(ctx, "u:bob", 1, now.Add(time.Second)); !result.Allowed {
		t.Fatalf("expected request allowed in next window")
	}
}

func TestMemoryLimiterDropsStaleWindows(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "u:old", 1, now); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if _, err := limiter.Allow(ctx, "u:new", 1, now.Add(time.Second)); err != nil {
		t.Fatalf("allow in next window: %v", err)
	}

	limiter.mu.Lock()
	_, stale := limiter.windows["u:old"]
	limiter.mu.Unlock()
	if stale {
		t.Fatalf("expected stale window counter to be pruned")
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter()
	for i := 0; i < 10; i++ {
		result, err := limiter.Allow(context.Background(), "u:carol", 0, time.Now())
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected zero limit to disable limiting")
		}
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	manager := NewManager(func() SettingsConfig {
		return SettingsConfig{Limit: 1, RedisEnabled: true, RedisAddr: "127.0.0.1:1"}
	}, nil, nil)
	ctx := context.Background()

	// Redis is unreachable; the manager trips its breaker and serves the
	// decision from memory.
	result, err := manager.Allow(ctx, "u:dave")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected first request allowed via memory fallback")
	}
	result, err = manager.Allow(ctx, "u:dave")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected second request denied via memory fallback")
	}
}

func TestManagerZeroLimitAllowsAll(t *testing.T) {
	manager := NewManager(func() SettingsConfig { return SettingsConfig{Limit: 0} }, nil, nil)
	for i := 0; i < 5; i++ {
		result, err := manager.Allow(context.Background(), "u:erin")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected unlimited manager to allow all")
		}
	}
}
