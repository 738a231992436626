package client

import (
	"context"
	"fmt"
	"time"

	"event-tickets/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

// InitRedisClient returns nil when no address is configured; callers treat
// that as "rate limiting disabled".
func InitRedisClient(ctx context.Context, cfg config.Redis) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}
