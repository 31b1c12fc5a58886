package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/phdplan/internal/config"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	a, ok := Actor(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": a.ID, "admin": a.IsAdmin()})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 42, "admin", 5)
	require.NoError(t, err)
	rec := serve(t, e, http.MethodGet, "/me", tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"admin":true}`, rec.Body.String())

	rec = serve(t, e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("another-secret", 42, "admin", 5)
	require.NoError(t, err)
	rec = serve(t, e, http.MethodGet, "/me", other.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin))

	user, err := utils.NewAccessToken(secret, 7, "user", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(t, e, http.MethodGet, "/admin", user.Token).Code)

	admin, err := utils.NewAccessToken(secret, 1, "admin", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(t, e, http.MethodGet, "/admin", admin.Token).Code)
}

func TestActorMissing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := Actor(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", userKey(c))

	c.Set(ctxUserID, uint64(9))
	assert.Equal(t, "9", userKey(c))
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	rec := serve(t, e, http.MethodGet, "/ping", "")
	assert.Equal(t, "pong", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e.POST("/v1/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(t, e, http.MethodPost, "/v1/auth/login", "").Code)
	}
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache"}
	e := echo.New()
	ctx := func(uid uint64, query string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/tasks"+query, nil), httptest.NewRecorder())
		c.SetPath("/v1/tasks")
		if uid != 0 {
			c.Set(ctxUserID, uid)
		}
		return c
	}

	base := cacheKey(cfg, 0, ctx(1, "?limit=5"))
	assert.Equal(t, base, cacheKey(cfg, 0, ctx(1, "?limit=5")))
	assert.NotEqual(t, base, cacheKey(cfg, 0, ctx(2, "?limit=5")), "users never share entries")
	assert.NotEqual(t, base, cacheKey(cfg, 1, ctx(1, "?limit=5")), "a write moves the generation")
	assert.NotEqual(t, base, cacheKey(cfg, 0, ctx(1, "?limit=6")))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}
