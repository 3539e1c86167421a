package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/logging"
)

func loginContext(ip string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/login")
	return c
}

func TestRateKey(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "shop:rl"}
	c := loginContext("10.0.0.1")

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "shop:rl:ip:10.0.0.1", rateKey(cfg, c))

	cfg.KeyStrategy = "ip_route"
	assert.Equal(t, "shop:rl:ip:10.0.0.1:route:POST /login", rateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "shop:rl:ip:10.0.0.1:user:anon:route:POST /login", rateKey(cfg, c))
}

func TestTokenBucket_PassThroughWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second}
	mw := NewTokenBucket(cfg, nil, logging.Discard(), nil).Middleware()

	calls := 0
	h := mw(func(c echo.Context) error { calls++; return c.NoContent(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.NoError(t, h(loginContext("10.0.0.1")))
	}
	assert.Equal(t, 5, calls)
}

func TestTokenBucket_FailsOpenWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "t"}
	mw := NewTokenBucket(cfg, rdb, logging.Discard(), nil).Middleware()

	c := loginContext("10.0.0.1")
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusTeapot) })(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, c.Response().Status)
}
