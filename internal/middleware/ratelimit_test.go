package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedHandler(t *testing.T, limit int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRateLimiter(rdb, limit, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return handler, mr
}

func doRequest(handler http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	handler, _ := newLimitedHandler(t, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.1:5000"))

	// A different source is unaffected.
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.2:5000"))
}

func TestRateLimiterFailsOpenWhenRedisDown(t *testing.T) {
	handler, mr := newLimitedHandler(t, 1)
	mr.Close()

	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000"))
}

func TestRateLimiterNilClientPassesThrough(t *testing.T) {
	rl := NewRateLimiter(nil, 1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000"))
}
