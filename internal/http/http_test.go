package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/food-ordering-saga/internal/config"
	orderHTTP "github.com/allisson/food-ordering-saga/internal/order/http"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		ServerHost:       "127.0.0.1",
		ServerPort:       0,
		MetricsEnabled:   false,
		RateLimitEnabled: false,
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server := NewServer(testConfig(), orderHTTP.NewOrderHandler(nil, testLogger()), nil, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestServer_UnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server := NewServer(testConfig(), orderHTTP.NewOrderHandler(nil, testLogger()), nil, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(1, 1, testLogger()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})

	// First request consumes the burst, the second is rejected.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiterStore_SameLimiterPerIP(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}

	assert.Same(t, store.getLimiter("10.0.0.1"), store.getLimiter("10.0.0.1"))
}

func TestRateLimiterStore_EvictsIdleLimiters(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}

	first := store.getLimiter("10.0.0.1")

	// Backdate the entry and the sweep clock so the next access evicts it.
	val, ok := store.limiters.Load("10.0.0.1")
	require.True(t, ok)
	val.(*rateLimiterEntry).lastAccess.Store(time.Now().Add(-2 * limiterIdleTimeout).UnixNano())
	store.lastSweep = time.Now().Add(-2 * limiterSweepInterval)

	store.getLimiter("10.0.0.2")

	_, ok = store.limiters.Load("10.0.0.1")
	assert.False(t, ok)

	// The evicted IP gets a fresh limiter on its next request.
	assert.NotSame(t, first, store.getLimiter("10.0.0.1"))
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"https://a.example", "https://b.example"},
		parseOrigins("https://a.example, https://b.example,"))
}

func TestCreateCORSMiddleware(t *testing.T) {
	assert.Nil(t, createCORSMiddleware(false, "", testLogger()))
	assert.Nil(t, createCORSMiddleware(true, "", testLogger()))
	assert.NotNil(t, createCORSMiddleware(true, "https://a.example", testLogger()))
}
