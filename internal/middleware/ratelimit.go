package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/response"
)

// RateLimiter is a per-IP fixed-window limiter backed by Redis, so every
// console replica shares the same counters.
type RateLimiter struct {
	rdb      *redis.Client
	rate     int           // Requests per window
	interval time.Duration // Window length
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 20 requests per minute).
func NewRateLimiter(rdb *redis.Client, rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, rate: rate, interval: interval, now: time.Now}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		window := rl.now().UnixNano() / int64(rl.interval)
		key := config.CacheKey.LoginRateKey(c.ClientIP(), window)

		ctx := c.Request.Context()
		pipe := rl.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.interval)
		if _, err := pipe.Exec(ctx); err != nil {
			// Fail open: a Redis outage should not lock everyone out of login.
			_ = c.Error(err)
			c.Next()
			return
		}

		if incr.Val() > int64(rl.rate) {
			c.Header("Retry-After", rl.retryAfter())
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// retryAfter is the number of whole seconds until the current window closes.
func (rl *RateLimiter) retryAfter() string {
	elapsed := time.Duration(rl.now().UnixNano() % int64(rl.interval))
	remaining := rl.interval - elapsed
	return strconv.Itoa(int(math.Ceil(remaining.Seconds())))
}
