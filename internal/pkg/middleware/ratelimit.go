package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/logger"
)

// RateLimit enforces a fixed-window request limit per caller, counted in
// Redis so the limit holds across replicas. Callers are identified by the
// authenticated user when present, otherwise by client IP. Redis failures
// fail open: limiting is protection, not a dependency.
func RateLimit(client *redis.Client, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := UserID(c)
		if caller == "" {
			caller = c.ClientIP()
		}

		bucket := time.Now().UTC().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", name, caller, bucket)

		pipe := client.TxPipeline()
		count := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logger.Warnw("rate limiter unavailable, allowing request",
				"name", name, "error", err.Error())
			c.Next()
			return
		}

		if count.Val() > int64(limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": fmt.Sprintf("Rate limit exceeded: %d per %s", limit, window),
			})
			return
		}

		c.Next()
	}
}
