package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/correlation"
)

const correlationHeader = "X-Correlation-ID"

// correlationMiddleware attaches a correlation ID to the request context
// and echoes it back in the response. Incoming IDs are honored so the
// frontend can stitch traces together.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(correlationHeader)
			if id == "" {
				id = uuid.NewString()
			}

			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(correlationHeader, id)

			return next(c)
		}
	}
}

// authRateLimiter throttles credential endpoints per client IP.
func authRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(1), // sustained 1 req/s per IP
			Burst:     10,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}

// wsRateLimiter throttles websocket dials per client IP; the hub caps
// total connections separately.
func wsRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(1),
			Burst:     20,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
