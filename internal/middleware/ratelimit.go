package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/config"
)

// takeToken refills the bucket for the whole intervals elapsed since the
// last refill, then spends one token if there is one.
// ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, tokens_left, wait_ms}.
var takeToken = redis.NewScript(`
local now, cap, refill, step, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local got = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(got[1]), tonumber(got[2])
if not tokens or not at then
	tokens, at = cap, now
end
local n = math.floor(math.max(0, now - at) / step)
if n > 0 then
	tokens = math.min(cap, tokens + n * refill)
	at = at + n * step
end
local ok, wait = 0, 0
if tokens >= 1 then
	ok, tokens = 1, tokens - 1
else
	wait = math.max(0, step - (now - at))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

// Decision is the outcome of one bucket check.
type Decision struct {
	Allowed   bool
	Remaining int64
	RetryIn   time.Duration
}

// TokenBucket is a Redis backed token bucket shared by every server
// instance.
type TokenBucket struct {
	Cfg   config.RateLimitConfig
	Redis redis.Scripter
	Clock clock.Clock
}

// Take spends one token from key.
func (b *TokenBucket) Take(ctx context.Context, key string) (Decision, error) {
	res, err := takeToken.Run(ctx, b.Redis, []string{key},
		b.Clock.Now().UnixMilli(),
		b.Cfg.Capacity,
		b.Cfg.RefillTokens,
		b.Cfg.RefillInterval.Milliseconds(),
		int64(b.Cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}
	return Decision{
		Allowed:   res[0] == 1,
		Remaining: res[1],
		RetryIn:   time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis token bucket. It
// fails open: when Redis is unavailable requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return (&TokenBucket{Cfg: cfg, Redis: rdb, Clock: clock.Real()}).Middleware(log)
}

// Middleware answers 429 with Retry-After once the caller's bucket is
// empty.
func (b *TokenBucket) Middleware(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(b.Cfg, c)
			d, err := b.Take(c.Request().Context(), key)
			if err != nil {
				log.Warn("rate limit check failed", slog.String("key", key), slog.Any("err", err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(b.Cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if b.Cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}

			secs := int((d.RetryIn + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			log.Info("rate limited", slog.String("user_id", UserID(c)), slog.String("path", c.Path()), slog.Int("retry_after", secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":      "too many requests",
				"code":       "rate_limited",
				"retryAfter": secs,
			})
		}
	}
}

// rateKey builds the bucket key. Every protected route sits behind
// Authenticate, so the user id is the natural subject; the IP is only a
// fallback for the ip strategies.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid, route := UserID(c), c.Request().Method+" "+c.Path()

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = []string{"ip", ip}
	case "user":
		parts = []string{"u", uid}
	case "ip_user":
		parts = []string{"ip", ip, "u", uid}
	case "user_route":
		parts = []string{"u", uid, "r", route}
	default:
		parts = []string{"ip", ip, "u", uid, "r", route}
	}
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}
