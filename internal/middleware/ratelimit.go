package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/logging"
)

// tokenBucketScript refills the bucket for the whole intervals elapsed since
// the last refill, then tries to take one token. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill_tokens)
  last_refill = last_refill + intervals * interval_ms
end

local allowed, retry_ms = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

// LimitRecorder counts rejected requests. *metrics.Metrics implements it.
type LimitRecorder interface {
	RecordRateLimited()
}

// Decision is the result of one bucket check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// TokenBucket is a Redis-backed limiter shared by every replica.
type TokenBucket struct {
	cfg      config.RateLimitConfig
	rdb      *redis.Client
	log      logging.Logger
	recorder LimitRecorder
	now      func() time.Time
}

func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logging.Logger, rec LimitRecorder) *TokenBucket {
	return &TokenBucket{cfg: cfg, rdb: rdb, log: log, recorder: rec, now: time.Now}
}

// Allow takes one token from the bucket at key.
func (b *TokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Middleware rejects requests with 429 once the caller's bucket is empty.
// Without Redis, or when Redis errors, requests pass through.
func (b *TokenBucket) Middleware() echo.MiddlewareFunc {
	if b == nil || !b.cfg.Enabled || b.rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(b.cfg, c)
			d, err := b.Allow(ctx, key)
			if err != nil {
				b.log.Warn(ctx, "rate limiter unavailable", "key", key, "err", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(b.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if b.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}

			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if b.recorder != nil {
				b.recorder.RecordRateLimited()
			}
			if b.cfg.Debug {
				b.log.Info(ctx, "rate limited", "key", key, "retry_after_s", secs)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "Too many requests",
				"retry_after": secs,
			})
		}
	}
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "route":
		parts = append(parts, "route", route)
	case "user":
		parts = append(parts, "user", subjectOf(c))
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", subjectOf(c), "route", route)
	}
	return strings.Join(parts, ":")
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
