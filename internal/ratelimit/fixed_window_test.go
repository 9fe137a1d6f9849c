package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter, err := NewFixedWindow(rdb, "signup", limit, window)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter, mr
}

func TestFixedWindowBlocksOverQuota(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !limiter.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("request over quota should be blocked")
	}
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if !limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("first key should pass")
	}
	if limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("first key should now be blocked")
	}
	if !limiter.Allow(ctx, "5.6.7.8") {
		t.Fatalf("a different key must have its own quota")
	}
}

func TestFixedWindowCounterExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if !limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("first request should pass")
	}
	if limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("second request should be blocked")
	}
	mr.FastForward(2 * time.Minute)
	if !limiter.Allow(ctx, "1.2.3.4") {
		t.Fatalf("quota should reset once the window counter expires")
	}
}

func TestFixedWindowFailsClosed(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, time.Minute)
	mr.Close()
	if limiter.Allow(context.Background(), "1.2.3.4") {
		t.Fatalf("limiter must fail closed when redis is unreachable")
	}
}

func TestNewFixedWindowValidatesArguments(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	if _, err := NewFixedWindow(nil, "signup", 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewFixedWindow(rdb, " ", 1, time.Minute); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if _, err := NewFixedWindow(rdb, "signup", 0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewFixedWindow(rdb, "signup", 1, 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
