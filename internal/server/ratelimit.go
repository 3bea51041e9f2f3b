package server

import (
	"auctions/internal/session"
	"auctions/utils"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, counts it and records the request if under limit.
// KEYS[1]=key, ARGV = now_ms, window_start_ms, window_sec, member, limit.
// Returns the count including this request, or -1 when limited.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
end
return -1
`)

// RedisRateLimit limits requests per signed-in user, or per client IP for
// anonymous requests. A nil client disables limiting and Redis errors let the
// request through.
func RedisRateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	return func(c *gin.Context) {
		key := rateLimitKey(c)
		now := time.Now()
		member := fmt.Sprintf("%d-%s", now.UnixNano(), utils.GenerateID())

		res, err := slidingWindow.Run(c.Request.Context(), rdb, []string{key},
			now.UnixMilli(), now.Add(-window).UnixMilli(), windowSec, member, limit).Int()
		if err != nil {
			utils.Warn("RedisRateLimit: redis unavailable, allowing request", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		if res < 0 {
			c.Header("Retry-After", fmt.Sprint(windowSec))
			utils.JSONError(c, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded for %s", key), "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	if user, ok := session.CurrentUser(c); ok {
		return fmt.Sprintf("rate_limit:auctions:user:%d", user.ID)
	}
	return fmt.Sprintf("rate_limit:auctions:ip:%s", c.ClientIP())
}
