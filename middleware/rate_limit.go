package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"incidentwatch/utils"
)

// RateLimitConfig holds rate limiting configuration backed by Redis. A nil
// Redis client disables limiting entirely.
type RateLimitConfig struct {
	Redis     *redis.Client
	Requests  int
	Window    time.Duration
	KeyPrefix string
	SkipPaths []string
}

type RateLimiter struct {
	config RateLimitConfig
	skip   map[string]bool
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "incidentwatch:ratelimit"
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}
	return &RateLimiter{config: config, skip: skip}
}

// Middleware limits requests per reporter when authenticated, per client IP
// otherwise. Redis errors fail open.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.Redis == nil || rl.skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := rl.keyFor(c)
		allowed, remaining, resetTime, err := rl.check(c.Request.Context(), key)
		if err != nil {
			logrus.Errorf("Rate limit check failed: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) keyFor(c *gin.Context) string {
	if reporterID := c.GetString(ContextReporterID); reporterID != "" {
		return fmt.Sprintf("%s:reporter:%s", rl.config.KeyPrefix, reporterID)
	}
	return fmt.Sprintf("%s:ip:%s", rl.config.KeyPrefix, c.ClientIP())
}

// check runs a sliding window log over a Redis sorted set.
func (rl *RateLimiter) check(ctx context.Context, key string) (allowed bool, remaining int, resetTime time.Time, err error) {
	now := time.Now()
	window := rl.config.Window

	pipe := rl.config.Redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now.Add(-window).UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, window+time.Minute)

	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := countCmd.Val()
	allowed = count < int64(rl.config.Requests)
	if !allowed {
		rl.config.Redis.ZRem(ctx, key, fmt.Sprintf("%d", now.UnixNano()))
	}

	remaining = rl.config.Requests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, now.Add(window), nil
}
