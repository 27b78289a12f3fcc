package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/videotube-users/internal/service"
	"go.uber.org/zap"
)

// Limiter counts requests per key
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*service.RateLimitResult, error)
}

// RateLimitMiddleware rejects requests over limit per window with 429.
// If the limiter backend fails the request is let through and the failure logged.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.FullPath() + ":" + keyFunc(c)

		result, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
			abortWithError(c, http.StatusTooManyRequests, "Too many requests, try again later")
			return
		}

		c.Next()
	}
}

// IPBasedKey keys on the client IP. Forwarding headers only count when the
// router trusts the peer (gin.Engine.SetTrustedProxies).
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
