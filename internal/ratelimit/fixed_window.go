package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counters live under one namespace so several limiters can share a
// Redis database without colliding.
const keyspace = "roomstyler:ratelimit"

// incrWithExpiry bumps the window counter and stamps the TTL on first
// use, atomically.
var incrWithExpiry = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// FixedWindowLimiter counts requests per caller key in fixed time
// windows, backed by a Redis client shared across limiters.
type FixedWindowLimiter struct {
	rdb    *redis.Client
	name   string
	limit  int
	window time.Duration
}

// NewFixedWindow builds a limiter named after the endpoint it guards.
func NewFixedWindow(rdb *redis.Client, name string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if rdb == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("ratelimit: limiter name is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("ratelimit: limit and window must be positive")
	}
	return &FixedWindowLimiter{rdb: rdb, name: name, limit: limit, window: window}, nil
}

// Allow reports whether key still has quota in the current window.
// Redis failures count against the caller: the limiter fails closed.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	slot := time.Now().UnixMilli() / l.window.Milliseconds()
	counter := keyspace + ":" + l.name + ":" + key + ":" + strconv.FormatInt(slot, 10)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := incrWithExpiry.Run(ctx, l.rdb, []string{counter}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false
	}
	return n <= int64(l.limit)
}
