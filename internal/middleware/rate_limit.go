package middleware

import (
	"fmt"
	"time"

	"github.com/checkbill/receipts-api/internal/errs"
	"github.com/checkbill/receipts-api/internal/server"
	"github.com/labstack/echo/v4"
)

// RateLimitMiddleware enforces a per-IP fixed window limit backed by Redis.
// It guards the auth routes against credential stuffing.
type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

// Limit returns the enforcement middleware. Disabled config or an
// unreachable Redis fails open: availability over strictness for a limiter.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	cfg := r.server.Config.RateLimit

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled {
				return next(c)
			}

			ctx := c.Request().Context()
			window := time.Now().Unix() / int64(cfg.Window.Seconds())
			key := fmt.Sprintf("ratelimit:%s:%s:%d", c.Path(), c.RealIP(), window)

			count, err := r.server.Redis.Incr(ctx, key).Result()
			if err != nil {
				GetLogger(c).Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
				return next(c)
			}
			if count == 1 {
				r.server.Redis.Expire(ctx, key, cfg.Window)
			}

			if count > int64(cfg.Requests) {
				r.RecordRateLimitHit(c.Path())
				return errs.NewTooManyRequestsError("Too many requests, slow down")
			}

			return next(c)
		}
	}
}

// RecordRateLimitHit emits a New Relic custom event for a rejected request.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if r.server.LoggerService != nil && r.server.LoggerService.GetApplication() != nil {
		r.server.LoggerService.GetApplication().RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}
