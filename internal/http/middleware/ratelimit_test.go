package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	l := NewIPRateLimiter(1, 2, time.Minute)
	now := time.Now()

	assert.True(t, l.Allow("10.0.0.1", now))
	assert.True(t, l.Allow("10.0.0.1", now))
	assert.False(t, l.Allow("10.0.0.1", now))

	// Buckets are per key
	assert.True(t, l.Allow("10.0.0.2", now))

	// One token back after a second
	assert.True(t, l.Allow("10.0.0.1", now.Add(time.Second)))

	// Blank keys are not limited
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(" ", now))
	}
}

func TestIPRateLimiter_NilAllowsAll(t *testing.T) {
	l := NewIPRateLimiter(0, 0, 0)
	assert.Nil(t, l)
	assert.True(t, l.Allow("10.0.0.1", time.Now()))
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/send-otp", RateLimit(NewIPRateLimiter(0.001, 1, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/send-otp", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
