package middleware

import (
	"net/http"
	"strconv"

	"event-tickets/internal/ratelimit"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ScannerRateLimit caps validate/redeem calls per client IP. Store errors
// let the request through.
func ScannerRateLimit(limiter *ratelimit.Limiter, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Enabled() {
				return next(c)
			}

			ip := c.RealIP()
			ctx := c.Request().Context()

			// a client already over the limit is turned away without
			// adding to its window
			retryAfter, err := limiter.RetryAfter(ctx, ip)
			if err != nil {
				logger.Warn("scanner rate limit unavailable", zap.String("ip", ip), zap.Error(err))
				return next(c)
			}
			if retryAfter > 0 {
				return tooManyRequests(c, retryAfter)
			}

			retryAfter, ok, err := limiter.Allow(ctx, ip)
			if err != nil {
				logger.Warn("scanner rate limit unavailable", zap.String("ip", ip), zap.Error(err))
				return next(c)
			}
			if !ok {
				return tooManyRequests(c, retryAfter)
			}
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter int64) error {
	c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"success":    false,
		"error":      "Too many requests",
		"retryAfter": retryAfter,
	})
}
