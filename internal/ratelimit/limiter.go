package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const scannerWindow = time.Minute

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter is a fixed-window counter per client key. A zero limit disables it.
type Limiter struct {
	store     WindowStore
	perMinute int
}

func NewLimiter(store WindowStore, perMinute int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	return &Limiter{store: store, perMinute: perMinute}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil && l.perMinute > 0
}

// Allow counts one request for clientKey and reports whether it fits the
// current window. When it does not, the returned value is the number of
// seconds until the window resets.
func (l *Limiter) Allow(ctx context.Context, clientKey string) (int64, bool, error) {
	if !l.Enabled() {
		return 0, true, nil
	}
	if clientKey == "" {
		return 0, false, fmt.Errorf("client key is required")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, scannerKey(clientKey), scannerWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perMinute) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func (l *Limiter) RetryAfter(ctx context.Context, clientKey string) (int64, error) {
	if !l.Enabled() {
		return 0, nil
	}

	count, ttl, err := l.store.WindowState(ctx, scannerKey(clientKey))
	if err != nil {
		return 0, err
	}
	if count >= int64(l.perMinute) {
		return ceilSeconds(ttl), nil
	}
	return 0, nil
}

func scannerKey(clientKey string) string {
	return "rate:scanner:min:" + clientKey
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
