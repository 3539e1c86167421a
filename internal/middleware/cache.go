package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/logging"
)

// CacheRecorder counts cache lookups. *metrics.Metrics implements it.
type CacheRecorder interface {
	RecordCache(result string)
}

// ResponseCache stores successful GET responses in Redis together with their
// content headers. Per-request headers (CORS, request id) are left to the
// middleware that owns them.
type ResponseCache struct {
	cfg      config.CacheConfig
	rdb      *redis.Client
	log      logging.Logger
	recorder CacheRecorder
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log logging.Logger, rec CacheRecorder) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log, recorder: rec}
}

func (rc *ResponseCache) active() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// Middleware serves hits from Redis and records misses. Only 200 responses
// are stored.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.active() {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[c.Request().Method] {
				rc.record("bypass")
				return next(c)
			}
			ctx := c.Request().Context()
			key := rc.key(c)

			if raw, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodeEntry(raw); ok {
					rc.record("hit")
					// entries written by older builds may carry more headers
					for k, vals := range storedHeaders(hdr) {
						c.Response().Header().Set(k, vals[0])
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			rc.record("miss")
			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			entry, err := encodeEntry(cw.status, storedHeaders(c.Response().Header()), cw.buf.Bytes())
			if err == nil {
				err = rc.rdb.Set(context.WithoutCancel(ctx), key, entry, rc.cfg.TTL).Err()
			}
			if err != nil {
				rc.log.Warn(ctx, "response cache store failed", "key", key, "err", err)
			}
			return nil
		}
	}
}

// Invalidate drops every cached response for the given route pattern (for
// example "/inventory"). Writes call it so readers never see stale data for
// longer than the request that changed it.
func (rc *ResponseCache) Invalidate(ctx context.Context, routes ...string) {
	if !rc.active() {
		return
	}
	for _, route := range routes {
		pattern := rc.cfg.Prefix + ":" + routeTag(route) + ":*"
		iter := rc.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			rc.log.Warn(ctx, "response cache scan failed", "pattern", pattern, "err", err)
			continue
		}
		if len(keys) > 0 {
			if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
				rc.log.Warn(ctx, "response cache invalidate failed", "pattern", pattern, "err", err)
			}
		}
	}
}

func (rc *ResponseCache) record(result string) {
	if rc.recorder != nil {
		rc.recorder.RecordCache(result)
	}
}

// key is <prefix>:<route tag>:<sha1 of the strategy parts>. The readable
// route tag lets Invalidate find every variant of one route.
func (rc *ResponseCache) key(c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "route":
		parts = []string{c.Path()}
	case "method_route":
		parts = []string{r.Method, c.Path()}
	case "method_route_query":
		parts = []string{r.Method, c.Path(), r.URL.RawQuery}
	default: // route_query
		parts = []string{c.Path(), r.URL.RawQuery}
	}
	// concrete path so /inventory/1 and /inventory/2 differ under "route"
	parts = append(parts, r.URL.Path)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s:%x", rc.cfg.Prefix, routeTag(c.Path()), sum[:])
}

// routeTag maps "/inventory/:id" and "/inventory" to "inventory".
func routeTag(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}

// contentHeaders are the only response headers kept with a cached body.
var contentHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderContentEncoding,
	"Content-Language",
}

func storedHeaders(h http.Header) http.Header {
	out := http.Header{}
	for _, k := range contentHeaders {
		if v := h.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out
}

// captureWriter tees the response body into buf up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.truncated = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// encodeEntry packs [4 bytes status][4 bytes header length][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodeEntry(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if n < 0 || 8+n > len(bs) {
		return 0, nil, nil, false
	}
	hdr := http.Header{}
	if n > 0 {
		if err := json.Unmarshal(bs[8:8+n], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+n:], true
}
