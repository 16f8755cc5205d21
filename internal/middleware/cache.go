package middleware

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"

	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/config"
	"github.com/southwestptfs/flightdeck/internal/ttlstore"
)

// cachedResponse is what the response cache stores per key.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"t"`
	Body        []byte `json:"b"`
	StoredAt    int64  `json:"at"`
}

// teeWriter copies the body into buf while it streams to the client, up
// to limit bytes. Past the limit the copy is abandoned.
type teeWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// ResponseCache serves repeated reads from a ttlstore.Store. It sits behind
// Authenticate and only on routes whose body does not depend on the caller.
type ResponseCache struct {
	Cfg   config.CacheConfig
	Store ttlstore.Store
	Clock clock.Clock
	Log   *slog.Logger
}

func (rc *ResponseCache) key(c echo.Context) string {
	r := c.Request()
	h := blake3.New()
	for _, part := range []string{r.Method, c.Path(), r.URL.RawQuery} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// NewRedisCache caches successful responses of the configured methods in
// Redis for cfg.TTL. With caching disabled or no Redis it is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	rc := &ResponseCache{Cfg: cfg, Store: ttlstore.NewRedis(rdb, cfg.Prefix), Clock: clock.Real(), Log: log}
	return rc.Middleware()
}

// Middleware answers from the cache when it can (X-Cache: HIT) and stores
// 200 responses no larger than MaxBodyBytes otherwise.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	ttl := rc.Cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.Cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := rc.key(c)

			raw, err := rc.Store.Get(ctx, key)
			switch {
			case err == nil:
				var hit cachedResponse
				if json.Unmarshal([]byte(raw), &hit) == nil {
					h := c.Response().Header()
					h.Set("X-Cache", "HIT")
					h.Set("Age", strconv.FormatInt(max(0, rc.Clock.Now().Unix()-hit.StoredAt), 10))
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
				rc.Log.Warn("response cache entry unreadable", slog.String("key", key))
			case !errors.Is(err, ttlstore.ErrNotFound):
				rc.Log.Warn("response cache read failed", slog.String("key", key), slog.Any("err", err))
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: rc.Cfg.MaxBodyBytes}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.overflow {
				return nil
			}

			entry, err := json.Marshal(cachedResponse{
				Status:      tw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        tw.buf.Bytes(),
				StoredAt:    rc.Clock.Now().Unix(),
			})
			if err != nil {
				return nil
			}
			// The request may already be cancelled once the body is written.
			if err := rc.Store.Set(context.WithoutCancel(ctx), key, string(entry), ttl); err != nil {
				rc.Log.Warn("response cache write failed", slog.String("key", key), slog.Any("err", err))
			}
			return nil
		}
	}
}
