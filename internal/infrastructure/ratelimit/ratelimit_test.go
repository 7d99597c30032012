package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowhq/flow/internal/infrastructure/logger"
)

var testPolicy = Policy{Name: "test", Requests: 3, Window: time.Minute}

func newRedisLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, 0, logger.NewNop(), prometheus.NewRegistry()), mr
}

func fixedClock(l *Limiter, start time.Time) func(time.Duration) {
	now := start
	l.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestRedisLimiter(t *testing.T) {
	l, mr := newRedisLimiter(t)
	advance := fixedClock(l, time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, testPolicy, "ip:1.2.3.4"), "request %d", i)
	}
	assert.False(t, l.Allow(ctx, testPolicy, "ip:1.2.3.4"))
	assert.False(t, l.Allow(ctx, testPolicy, "ip:1.2.3.4"))

	// Other identifiers and policies have their own budget.
	assert.True(t, l.Allow(ctx, testPolicy, "ip:5.6.7.8"))
	assert.True(t, l.Allow(ctx, Policy{Name: "other", Requests: 1, Window: time.Minute}, "ip:1.2.3.4"))

	// Denied requests were not kept in the window.
	members, err := mr.ZMembers("ratelimit:test:ip:1.2.3.4")
	require.NoError(t, err)
	assert.Len(t, members, 3)

	assert.Equal(t, float64(2), testutil.ToFloat64(l.denied.WithLabelValues("test", "redis")))

	advance(61 * time.Second)
	assert.True(t, l.Allow(ctx, testPolicy, "ip:1.2.3.4"))
}

func TestFallsBackWhenRedisIsDown(t *testing.T) {
	l, mr := newRedisLimiter(t)
	fixedClock(l, time.Now())
	mr.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, testPolicy, "user:a"), "request %d", i)
	}
	assert.False(t, l.Allow(ctx, testPolicy, "user:a"))
	assert.Equal(t, float64(1), testutil.ToFloat64(l.denied.WithLabelValues("test", "local")))
}

func TestLocalLimiter(t *testing.T) {
	l := New(nil, 2, logger.NewNop(), nil)
	advance := fixedClock(l, time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, testPolicy, "a"))
	}
	assert.False(t, l.Allow(ctx, testPolicy, "a"))

	// One token comes back every window/requests.
	advance(20 * time.Second)
	assert.True(t, l.Allow(ctx, testPolicy, "a"))
	assert.False(t, l.Allow(ctx, testPolicy, "a"))

	assert.True(t, l.Allow(ctx, testPolicy, "b"))
	assert.Equal(t, 2, l.localSize())

	// Reaching the cap starts over instead of growing without bound.
	assert.True(t, l.Allow(ctx, testPolicy, "c"))
	assert.Equal(t, 1, l.localSize())
}

func TestMiddleware(t *testing.T) {
	l := New(nil, 0, logger.NewNop(), nil)
	fixedClock(l, time.Now())
	policy := Policy{Name: "strict", Requests: 2, Window: 10 * time.Second}

	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, l.Middleware(policy, func(c echo.Context) string { return "ip:" + c.RealIP() }))

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
}

func TestMiddlewarePassesRequestContext(t *testing.T) {
	l, mr := newRedisLimiter(t)
	policy := Policy{Name: "moderate", Requests: 1, Window: time.Minute}

	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, l.Middleware(policy, func(c echo.Context) string { return "user:1" }))

	// A cancelled request never reaches Redis and is judged locally.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mr.Exists("ratelimit:moderate:user:1"))
	assert.Equal(t, 1, l.localSize())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists("ratelimit:moderate:user:1"))
}
