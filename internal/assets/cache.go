// Package assets holds static media attached to outgoing ticket emails.
package assets

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Poster struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Source interface {
	Load(ctx context.Context) (*Poster, error)
}

// Cache loads the poster at most once per process. A failed load is not
// retried; emails are sent without the poster instead.
type Cache struct {
	source Source
	logger *zap.Logger

	once   sync.Once
	poster *Poster
	err    error
}

func NewCache(source Source, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{source: source, logger: logger}
}

func (c *Cache) EnsureLoaded(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.once.Do(func() {
		if c.source == nil {
			c.logger.Info("no poster source configured")
			return
		}

		poster, err := c.source.Load(ctx)
		if err != nil {
			c.err = fmt.Errorf("load poster: %w", err)
			c.logger.Error("poster unavailable, emails will be sent without it", zap.Error(err))
			return
		}

		c.poster = poster
		c.logger.Info("poster cached",
			zap.String("filename", poster.Filename),
			zap.Int("size_kb", len(poster.Content)/1024),
		)
	})

	return c.err
}

// Poster returns the cached poster, loading it on first use.
func (c *Cache) Poster(ctx context.Context) (*Poster, bool) {
	if c == nil {
		return nil, false
	}
	_ = c.EnsureLoaded(ctx)
	return c.poster, c.poster != nil
}
