package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xform-media/xform/common/ratelimit"
	"github.com/xform-media/xform/common/tenant"
)

// TenantRateLimitMiddleware checks the per-tenant request limit, keyed by
// the normalized request host. On limiter errors the request is allowed
// (fail open for availability).
func TenantRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := c.Request().Host
			if host == "" {
				// The handler rejects hostless requests; nothing to key on.
				return next(c)
			}

			result, err := rateLimiter.CheckHostLimit(
				c.Request().Context(),
				tenant.NormalizeHost(host),
				limit,
				windowSec,
			)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "Too many requests for this host. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
