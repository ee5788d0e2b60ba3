package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"projecthub/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

type RateLimitMetrics interface {
	IncRateLimited()
}

// RateLimit counts requests per client IP. A failing backend lets the
// request through.
func RateLimit(limiter ratelimit.Limiter, metrics RateLimitMetrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		res, err := limiter.Allow(ctx, ip)
		if err != nil {
			logger.WarnContext(ctx, "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			metrics.IncRateLimited()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
