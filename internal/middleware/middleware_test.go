package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/smart-zaiko/internal/config"
	"github.com/iliyamo/smart-zaiko/internal/utils"
)

const testSecret = "test-secret"

func signed(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewSessionToken(testSecret, utils.Identity{UserID: "u1", Username: "kenji", Email: "k@example.com"}, ttl)
	require.NoError(t, err)
	return tok.Token
}

func runSessionAuth(t *testing.T, prepare func(*http.Request)) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	prepare(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := SessionAuth(testSecret)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return rec, c
}

func TestSessionAuthCookie(t *testing.T) {
	tok := signed(t, time.Hour)
	rec, c := runSessionAuth(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: tok})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", UserID(c))
	assert.Equal(t, "kenji", Username(c))
	assert.Equal(t, "k@example.com", Email(c))
}

func TestSessionAuthBearer(t *testing.T) {
	tok := signed(t, time.Hour)
	rec, c := runSessionAuth(t, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", UserID(c))
}

func TestSessionAuthRejects(t *testing.T) {
	cases := map[string]func(*http.Request){
		"missing": func(r *http.Request) {},
		"garbage": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: "nope"}) },
		"expired": func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+signed(t, -time.Minute))
		},
		"basic auth": func(r *http.Request) { r.SetBasicAuth("a", "b") },
	}
	for name, prep := range cases {
		t.Run(name, func(t *testing.T) {
			rec, c := runSessionAuth(t, prep)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Empty(t, UserID(c))
		})
	}
}

func TestCachedResponseReplay(t *testing.T) {
	stored := cachedResponse{
		Status: http.StatusOK,
		Header: storableHeader(http.Header{
			"Content-Type":   {"application/json"},
			"X-Cache":        {"MISS"},
			"X-Request-Id":   {"r1"},
			"Content-Length": {"11"},
		}),
		Body: []byte(`{"ok":true}`),
	}
	assert.Equal(t, http.Header{"Content-Type": {"application/json"}}, stored.Header)

	bs, err := json.Marshal(stored)
	require.NoError(t, err)
	var hit cachedResponse
	require.NoError(t, json.Unmarshal(bs, &hit))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, hit.replay(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
}

func newCtx(target, user string) echo.Context {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	c.SetPath("/api/dashboard/sales/:id")
	c.SetParamNames("id")
	c.SetParamValues("s1")
	if user != "" {
		c.Set(ctxUserID, user)
	}
	return c
}

func TestCacheKeyIsScopedByUserAndGeneration(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "zaiko:cache", KeyStrategy: "route_query"}

	a := cacheKeyFrom(cfg, newCtx("/api/dashboard/sales/s1?x=1&y=2", "u1"), 0)
	assert.Equal(t, a, cacheKeyFrom(cfg, newCtx("/api/dashboard/sales/s1?y=2&x=1", "u1"), 0), "query order is irrelevant")
	assert.NotEqual(t, a, cacheKeyFrom(cfg, newCtx("/api/dashboard/sales/s1?x=1&y=2", "u2"), 0))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, newCtx("/api/dashboard/sales/s1?x=1&y=2", "u1"), 1))
	assert.Contains(t, a, "zaiko:cache:u:u1:g:0:")

	other := newCtx("/api/dashboard/sales/s2", "u1")
	other.SetParamValues("s2")
	assert.NotEqual(t, cacheKeyFrom(cfg, newCtx("/api/dashboard/sales/s1", "u1"), 0), cacheKeyFrom(cfg, other, 0))
	assert.Equal(t, "zaiko:cache:gen:u1", generationKey(cfg, "u1"))
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated())
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated())
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	called := 0
	next := func(c echo.Context) error { called++; return nil }
	c := newCtx("/", "u1")
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil)(next)(c))
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)(next)(c))
	assert.Equal(t, 2, called)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/signin")

	cfg := config.RateLimitConfig{Prefix: "zaiko:rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "zaiko:rl:ip:10.0.0.7:route:POST /api/auth/signin", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "zaiko:rl:user:anon", buildRateKey(cfg, c))
	c.Set(ctxUserID, "u9")
	assert.Equal(t, "zaiko:rl:user:u9", buildRateKey(cfg, c))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(7), asInt64("7"))
	assert.Equal(t, int64(2), asInt64(2.9))
	assert.Equal(t, int64(0), asInt64(nil))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}

func TestParseDecision(t *testing.T) {
	d, err := parseDecision([]interface{}{int64(1), int64(4), int64(0)})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(4), d.Remaining)

	d, err = parseDecision([]interface{}{int64(0), int64(0), int64(2500)})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2500*time.Millisecond, d.RetryAfter)
	assert.Equal(t, 3, retryAfterSeconds(d.RetryAfter))
	assert.Equal(t, 1, retryAfterSeconds(0))

	_, err = parseDecision("nope")
	assert.Error(t, err)
}
