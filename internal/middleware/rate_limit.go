package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// defaults admit 5 requests per client per minute
	defaultBucketSize    = 5
	defaultRefillRate    = 5
	defaultWindowSeconds = 60
)

// RateLimiter implements a per-client token bucket stored in Redis.
// refillRate tokens are added every window. When Redis is unavailable
// requests are admitted.
type RateLimiter struct {
	rdb          redis.Cmdable
	bucketSize   int
	refillRate   int
	windowInSec  int
	pathPrefixes []string
	logger       *zap.Logger
	now          func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(rdb redis.Cmdable, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		rdb:         rdb,
		bucketSize:  defaultBucketSize,
		refillRate:  defaultRefillRate,
		windowInSec: defaultWindowSeconds,
		logger:      zap.NewNop(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(rl)
	}
	if rl.bucketSize <= 0 {
		rl.bucketSize = defaultBucketSize
	}
	if rl.refillRate <= 0 {
		rl.refillRate = defaultRefillRate
	}
	if rl.windowInSec <= 0 {
		rl.windowInSec = defaultWindowSeconds
	}

	return rl
}

// RateLimiterOption defines a function to configure RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithBucketSize sets the bucket size
func WithBucketSize(size int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.bucketSize = size
	}
}

// WithRefillRate sets how many tokens are added per window
func WithRefillRate(rate int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.refillRate = rate
	}
}

// WithWindow sets the time window in seconds
func WithWindow(seconds int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.windowInSec = seconds
	}
}

// WithPathPrefixes limits only requests under one of the prefixes.
// No prefixes means every request is limited.
func WithPathPrefixes(prefixes ...string) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.pathPrefixes = prefixes
	}
}

func WithRateLimitLogger(logger *zap.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

func WithRateLimitClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

func (rl *RateLimiter) applies(path string) bool {
	if len(rl.pathPrefixes) == 0 {
		return true
	}
	for _, prefix := range rl.pathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// keyTTL covers the time a drained bucket needs to refill completely.
func (rl *RateLimiter) keyTTL() time.Duration {
	windows := rl.bucketSize/rl.refillRate + 1
	return time.Duration(windows*rl.windowInSec) * time.Second
}

type bucketState struct {
	tokens     int
	lastRefill int64
}

// takeScript refills and takes from the bucket in one step so concurrent
// requests for the same client see each other's writes. Only whole tokens
// are added; the refill clock advances by the time those tokens account for.
var takeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local size = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local window = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "tokens", "last_refill")
local tokens = size
local last = now
if state[1] then tokens = tonumber(state[1]) end
if state[2] then last = tonumber(state[2]) end

local refill = math.floor((now - last) * rate / window)
if refill > 0 then
	tokens = math.min(tokens + refill, size)
	last = last + math.floor(refill * window / rate)
end

local allowed = 0
if tokens > 0 then
	tokens = tokens - 1
	allowed = 1
	redis.call("HSET", KEYS[1], "tokens", tokens, "last_refill", last)
	redis.call("EXPIRE", KEYS[1], ttl)
end
return {allowed, tokens, last}
`)

func (rl *RateLimiter) take(ctx context.Context, clientID string, now int64) (bucketState, bool, error) {
	key := fmt.Sprintf("rate_limit:%s", clientID)

	res, err := takeScript.Run(ctx, rl.rdb, []string{key},
		now, rl.bucketSize, rl.refillRate, rl.windowInSec, int64(rl.keyTTL()/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketState{tokens: rl.bucketSize, lastRefill: now}, false, err
	}
	if len(res) != 3 {
		return bucketState{tokens: rl.bucketSize, lastRefill: now}, false, fmt.Errorf("unexpected rate limit reply: %v", res)
	}
	return bucketState{tokens: int(res[1]), lastRefill: res[2]}, res[0] == 1, nil
}

// RateLimit returns a middleware that limits request rates using the token bucket algorithm
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.applies(c.Request.URL.Path) {
			c.Next()
			return
		}

		clientID := c.ClientIP()
		now := rl.now().Unix()

		state, allowed, err := rl.take(c.Request.Context(), clientID, now)
		if err != nil {
			requestLogger(c, rl.logger).Warn("Rate limit check failed, admitting request",
				zap.String("client_ip", clientID),
				zap.Error(err))
			c.Next()
			return
		}

		secondsPerToken := (rl.windowInSec + rl.refillRate - 1) / rl.refillRate
		reset := state.lastRefill + int64(secondsPerToken)
		if reset <= now {
			reset = now + 1
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(state.tokens))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.FormatInt(reset-now, 10))
			requestLogger(c, rl.logger).Info("Rate limit exceeded", zap.String("client_ip", clientID))
			_ = c.Error(&RateLimitError{Message: "rate limit exceeded, try again later"})
			c.Abort()
			return
		}

		c.Next()
	}
}
