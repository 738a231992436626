package ratelimit

import (
	"context"
	"testing"
	"time"

	"event-tickets/internal/repository"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, perMinute int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	return NewLimiter(repository.NewRateWindowRepository(redisClient), perMinute), mr
}

func TestLimiterBlocksAfterLimit(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, ok, err := limiter.Allow(ctx, "10.0.0.1"); err != nil || !ok {
			t.Fatalf("request %d: expected allowed, got ok=%v err=%v", i+1, ok, err)
		}
	}

	retryAfter, ok, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("expected fourth request to be limited")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("unexpected retry_after: %d", retryAfter)
	}

	if _, ok, _ := limiter.Allow(ctx, "10.0.0.2"); !ok {
		t.Fatalf("expected other client to be unaffected")
	}
}

func TestLimiterWindowResets(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 1)
	ctx := context.Background()

	_, _, _ = limiter.Allow(ctx, "10.0.0.1")
	if _, ok, _ := limiter.Allow(ctx, "10.0.0.1"); ok {
		t.Fatalf("expected second request to be limited")
	}

	wait, err := limiter.RetryAfter(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("retry after: %v", err)
	}
	if wait <= 0 {
		t.Fatalf("expected positive retry_after, got %d", wait)
	}

	mr.FastForward(time.Minute + time.Second)

	if _, ok, err := limiter.Allow(ctx, "10.0.0.1"); err != nil || !ok {
		t.Fatalf("expected allowed after window reset, got ok=%v err=%v", ok, err)
	}
}

func TestLimiterDisabled(t *testing.T) {
	var limiter *Limiter
	if limiter.Enabled() {
		t.Fatalf("nil limiter must be disabled")
	}
	if _, ok, err := limiter.Allow(context.Background(), "x"); err != nil || !ok {
		t.Fatalf("disabled limiter must allow, got ok=%v err=%v", ok, err)
	}

	zero := NewLimiter(nil, 10)
	if zero.Enabled() {
		t.Fatalf("limiter without store must be disabled")
	}
}
