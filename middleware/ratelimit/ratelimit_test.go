package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newApp(l *Limiter) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(l.Handler())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestLimiter_AllowsWithinLimit(t *testing.T) {
	l := New(rate.Limit(10), 10)
	defer l.Close()
	app := newApp(l)

	for i := 0; i < 10; i++ {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}
}

func TestLimiter_RejectsOverLimit(t *testing.T) {
	l := New(rate.Limit(1), 1)
	defer l.Close()
	app := newApp(l)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "1", res.Header.Get("Retry-After"))
}

func TestLimiter_RetryAfterSlowRate(t *testing.T) {
	l := New(rate.Limit(0.1), 1)
	defer l.Close()
	app := newApp(l)

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, "10", res.Header.Get("Retry-After"))
}

func TestLimiter_PruneStale(t *testing.T) {
	l := New(rate.Limit(1), 1)
	defer l.Close()

	now := time.Now()
	l.now = func() time.Time { return now }
	l.getLimiter("10.0.0.1")
	l.getLimiter("10.0.0.2")
	require.Equal(t, 2, l.Len())

	now = now.Add(staleAfter + time.Second)
	l.getLimiter("10.0.0.2")
	l.prune()

	assert.Equal(t, 1, l.Len())
}

func TestLimiter_CloseIdempotent(t *testing.T) {
	l := New(rate.Limit(1), 1)
	assert.NotPanics(t, func() {
		l.Close()
		l.Close()
	})
}
