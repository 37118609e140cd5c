package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "k", 3, time.Minute))
	}
	assert.False(t, l.Allow(ctx, "k", 3, time.Minute))

	// The oldest request ages out and frees one slot.
	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow(ctx, "k", 3, time.Minute))
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a", 1, time.Minute))
	assert.False(t, l.Allow(ctx, "a", 1, time.Minute))
	assert.True(t, l.Allow(ctx, "b", 1, time.Minute))
}

func TestMemoryLimiterSweep(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow(context.Background(), "stale", 5, time.Minute)
	now = now.Add(20 * time.Minute)
	l.Allow(context.Background(), "fresh", 5, time.Minute)

	assert.Equal(t, 1, l.Sweep(15*time.Minute))
	assert.Len(t, l.history, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/x", RateLimit(NewMemoryLimiter(), "x", 2, time.Minute, "slow down"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
