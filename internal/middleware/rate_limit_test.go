package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func newRateLimitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(), rl.RateLimit())
	router.GET("/api/public/app-info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	router.GET("/api/user/hello", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return router
}

func doRequest(router http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}

	rl := NewRateLimiter(rdb,
		WithBucketSize(3),
		WithRefillRate(1),
		WithWindow(1),
		WithPathPrefixes("/api/public"),
		WithRateLimitClock(clock.Now),
	)
	router := newRateLimitedRouter(rl)

	tests := []struct {
		name           string
		advance        time.Duration
		expectedStatus int
		headers        map[string]string
	}{
		{
			name:           "First request succeeds",
			expectedStatus: http.StatusOK,
			headers:        map[string]string{"X-RateLimit-Limit": "3", "X-RateLimit-Remaining": "2"},
		},
		{
			name:           "Second request succeeds",
			expectedStatus: http.StatusOK,
			headers:        map[string]string{"X-RateLimit-Remaining": "1"},
		},
		{
			name:           "Third request succeeds",
			expectedStatus: http.StatusOK,
			headers:        map[string]string{"X-RateLimit-Remaining": "0"},
		},
		{
			name:           "Fourth request fails",
			expectedStatus: http.StatusTooManyRequests,
			headers:        map[string]string{"X-RateLimit-Remaining": "0", "Retry-After": "1"},
		},
		{
			name:           "Request after refill succeeds",
			advance:        time.Second,
			expectedStatus: http.StatusOK,
			headers:        map[string]string{"X-RateLimit-Remaining": "0"},
		},
		{
			name:           "Bucket refills up to its size",
			advance:        time.Minute,
			expectedStatus: http.StatusOK,
			headers:        map[string]string{"X-RateLimit-Remaining": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = clock.t.Add(tt.advance)

			w := doRequest(router, "/api/public/app-info", "192.168.1.1:12345")
			assert.Equal(t, tt.expectedStatus, w.Code)
			for header, expected := range tt.headers {
				assert.Equal(t, expected, w.Header().Get(header), header)
			}
		})
	}
}

func TestRateLimiterIsPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)

	rl := NewRateLimiter(rdb, WithBucketSize(1), WithPathPrefixes("/api/public"))
	router := newRateLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, doRequest(router, "/api/public/app-info", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "/api/public/app-info", "10.0.0.1:1001").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, "/api/public/app-info", "10.0.0.2:1000").Code)
}

func TestRateLimiterConcurrentBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}

	rl := NewRateLimiter(rdb,
		WithBucketSize(5),
		WithRefillRate(5),
		WithWindow(60),
		WithPathPrefixes("/api/public"),
		WithRateLimitClock(clock.Now),
	)
	router := newRateLimitedRouter(rl)

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
		limited  atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch doRequest(router, "/api/public/app-info", "10.0.0.9:4000").Code {
			case http.StatusOK:
				admitted.Add(1)
			case http.StatusTooManyRequests:
				limited.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), admitted.Load())
	assert.Equal(t, int32(45), limited.Load())
}

func TestRateLimiterSkipsOtherPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, rdb := newTestRedis(t)

	rl := NewRateLimiter(rdb, WithBucketSize(1), WithPathPrefixes("/api/public"))
	router := newRateLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		w := doRequest(router, "/api/user/hello", "10.0.0.1:1000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, rdb := newTestRedis(t)
	mr.Close()

	rl := NewRateLimiter(rdb, WithBucketSize(1))
	router := newRateLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		w := doRequest(router, "/api/public/app-info", "10.0.0.1:1000")
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiterOptions(t *testing.T) {
	rl := NewRateLimiter(nil,
		WithBucketSize(200),
		WithRefillRate(20),
		WithWindow(2),
	)

	assert.Equal(t, 200, rl.bucketSize)
	assert.Equal(t, 20, rl.refillRate)
	assert.Equal(t, 2, rl.windowInSec)

	rl = NewRateLimiter(nil, WithRefillRate(0))
	assert.Equal(t, defaultRefillRate, rl.refillRate)
}
