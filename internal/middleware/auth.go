package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards admin routes with a shared secret header. An empty key
// leaves the routes open, which is only meant for local development.
func AdminKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return next(c)
			}

			provided := c.Request().Header.Get(AdminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized: invalid or missing API key"})
			}
			return next(c)
		}
	}
}
