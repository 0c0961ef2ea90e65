package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window keys expire two seconds after first use so clock skew between
// instances cannot orphan them.
const redisWindowTTL = 2

// redisCountScript increments the window counter and stamps the expiry on
// first use, as one atomic step.
var redisCountScript = redis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return used
`)

// RedisLimiter counts generation requests per user key in fixed one-second
// windows shared across instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter with the given key prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow grants the request when fewer than limit requests were counted for
// the key in the current window. Errors surface to the caller so the manager
// can trip its breaker and fall back to memory.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if l == nil || l.client == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	current := now.Unix()
	reset := now.Truncate(window).Add(window).UTC()

	res, errRun := redisCountScript.Run(ctx, l.client,
		[]string{l.windowKey(key, current)}, redisWindowTTL).Result()
	if errRun != nil {
		return Result{}, errRun
	}
	used, ok := res.(int64)
	if !ok {
		return Result{}, fmt.Errorf("rate limit redis: unexpected script result %T", res)
	}
	if used > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := limit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

func (l *RedisLimiter) windowKey(key string, sec int64) string {
	if l.prefix == "" {
		return key + ":" + strconv.FormatInt(sec, 10)
	}
	return l.prefix + ":" + key + ":" + strconv.FormatInt(sec, 10)
}
