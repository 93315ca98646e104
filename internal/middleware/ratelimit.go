package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/response"
)

// WindowCounter increments a counter that expires after ttl and returns the
// new value.
type WindowCounter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter is a WindowCounter shared by every server instance.
type RedisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter creates a new RedisCounter.
func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter allows rate requests per client IP in fixed windows.
type RateLimiter struct {
	counter  WindowCounter
	rate     int
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewRateLimiter creates a RateLimiter (e.g., 120 requests per minute).
func NewRateLimiter(counter WindowCounter, rate int, interval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		rate:     rate,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// Requests pass when the counter store is unavailable.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		now := rl.now()
		window := now.UnixNano() / int64(rl.interval)
		key := config.CacheKey.RateLimitKey(c.ClientIP(), window)

		count, err := rl.counter.Incr(c.Request.Context(), key, rl.interval)
		if err != nil {
			rl.log.Warn().Err(err).Str("key", key).Msg("Rate limit counter unavailable")
			c.Next()
			return
		}

		remaining := int64(rl.rate) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.rate))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.rate) {
			reset := time.Unix(0, (window+1)*int64(rl.interval)).Sub(now)
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
