package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterCleanupPeriod = 5 * time.Minute
)

// userMiddleware requires the X-User-ID header and stores it on the context.
func (c *Controller) userMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID := strings.TrimSpace(ctx.Request().Header.Get(HeaderUserID))
		if userID == "" {
			return ctx.JSON(http.StatusUnauthorized,
				NewErrorResponse("unauthenticated", "missing "+HeaderUserID+" header", http.StatusUnauthorized))
		}
		ctx.Set(contextUserIDKey, userID)
		return next(ctx)
	}
}

// metricsMiddleware records per-route request counts and latency.
func (c *Controller) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if c.metrics == nil {
				return next(ctx)
			}
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			c.metrics.RecordRequest(ctx.Request().Method, routeOf(ctx), status, time.Since(start))
			return err
		}
	}
}

// rateLimitMiddleware applies a token bucket per client IP.
func (c *Controller) rateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if c.limiter == nil || c.limiter.allow(ctx.RealIP()) {
				return next(ctx)
			}
			if c.metrics != nil {
				c.metrics.RecordRateLimited(routeOf(ctx))
			}
			ctx.Response().Header().Set(echo.HeaderRetryAfter, "1")
			return ctx.JSON(http.StatusTooManyRequests,
				NewErrorResponse("rate_limited", "too many requests", http.StatusTooManyRequests))
		}
	}
}

func routeOf(ctx echo.Context) string {
	if p := ctx.Path(); p != "" {
		return p
	}
	return "unmatched"
}

// ipRateLimiter keeps one limiter per client; idle clients expire from the cache.
type ipRateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cache.Cache
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: cache.New(limiterIdleTTL, limiterCleanupPeriod),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	if v, ok := l.limiters.Get(ip); ok {
		l.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter).Allow()
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	if err := l.limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		// Lost the race to another request from the same client.
		if v, ok := l.limiters.Get(ip); ok {
			return v.(*rate.Limiter).Allow()
		}
	}
	return limiter.Allow()
}
