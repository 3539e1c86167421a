package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/logging"
)

func TestEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	raw, err := encodeEntry(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodeEntry(raw)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `[{"id":1}]`, string(body))

	_, _, _, ok = decodeEntry(raw[:5])
	assert.False(t, ok)
}

func TestRouteTag(t *testing.T) {
	assert.Equal(t, "inventory", routeTag("/inventory"))
	assert.Equal(t, "inventory", routeTag("/inventory/:id"))
	assert.Equal(t, "mechanics", routeTag("/mechanics/ranked"))
	assert.Equal(t, "root", routeTag("/"))
}

func TestResponseCache_KeyVariesByPathAndQuery(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Prefix: "shop:cache"}, nil, logging.Discard(), nil)
	e := echo.New()
	ctx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/inventory/:id")
		return c
	}

	a, b, a2 := rc.key(ctx("/inventory/1")), rc.key(ctx("/inventory/2")), rc.key(ctx("/inventory/1?x=1"))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, a2)
	assert.Contains(t, a, "shop:cache:inventory:")
}

func TestResponseCache_InactiveWithoutRedis(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, logging.Discard(), nil)
	rc.Invalidate(context.Background(), "/inventory") // no-op, must not panic

	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/inventory", nil), httptest.NewRecorder())
	err := rc.Middleware()(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })(c)
	require.NoError(t, err)
	assert.Empty(t, c.Response().Header().Get("X-Cache"))
}

func TestCaptureWriter_Truncates(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("ab"))
	_, _ = cw.Write([]byte("cdef"))

	assert.True(t, cw.truncated)
	assert.Equal(t, "abcdef", rec.Body.String())
}

func newCachedEcho(t *testing.T) (*echo.Echo, *ResponseCache, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rc := NewResponseCache(config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		Prefix:       "shop:cache",
		MaxBodyBytes: 1 << 20,
	}, rdb, logging.Discard(), nil)

	calls := 0
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{"*"}}))
	e.GET("/inventory", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []echo.Map{{"id": 1, "name": "Brake pad"}})
	}, rc.Middleware())
	e.GET("/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "nope"})
	}, rc.Middleware())
	return e, rc, &calls
}

func getWithOrigin(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderOrigin, "https://shop.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestResponseCache_HitReplaysBodyWithoutDuplicatingHeaders(t *testing.T) {
	e, _, calls := newCachedEcho(t)

	first := getWithOrigin(e, "/inventory")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := getWithOrigin(e, "/inventory")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, *calls, "second request is served from redis")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	h := second.Header()
	assert.Equal(t, []string{"*"}, h.Values(echo.HeaderAccessControlAllowOrigin))
	assert.Len(t, h.Values(echo.HeaderXRequestID), 1)
	assert.NotEqual(t, first.Header().Get(echo.HeaderXRequestID), h.Get(echo.HeaderXRequestID))
	assert.Equal(t, []string{echo.MIMEApplicationJSON}, h.Values(echo.HeaderContentType))
}

func TestResponseCache_OnlyStoresOK(t *testing.T) {
	e, _, calls := newCachedEcho(t)

	for i := 0; i < 2; i++ {
		rec := getWithOrigin(e, "/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, *calls)
}

func TestResponseCache_InvalidateDropsRoute(t *testing.T) {
	e, rc, calls := newCachedEcho(t)

	getWithOrigin(e, "/inventory")
	assert.Equal(t, "HIT", getWithOrigin(e, "/inventory").Header().Get("X-Cache"))

	rc.Invalidate(context.Background(), "/inventory")

	rec := getWithOrigin(e, "/inventory")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, *calls)
}

func TestStoredHeaders_KeepsContentHeadersOnly(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	h.Set(echo.HeaderAccessControlAllowOrigin, "*")
	h.Set(echo.HeaderXRequestID, "abc")
	h.Set("X-Cache", "MISS")

	got := storedHeaders(h)
	assert.Equal(t, http.Header{"Content-Type": {echo.MIMEApplicationJSON}}, got)
}
