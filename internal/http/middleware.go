package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CustomLoggerMiddleware logs HTTP requests with structured logging.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", requestid.Get(c)),
		)
	}
}

const (
	// limiterIdleTimeout is how long an IP can stay quiet before its limiter
	// is evicted.
	limiterIdleTimeout = 10 * time.Minute
	// limiterSweepInterval caps how often the store scans for idle limiters.
	limiterSweepInterval = time.Minute
)

// rateLimiterStore holds per-IP rate limiters. Idle limiters are swept on
// access so the map stays bounded on a public endpoint.
type rateLimiterStore struct {
	limiters  sync.Map // map[string]*rateLimiterEntry (IP -> limiter)
	rps       float64
	burst     int
	mu        sync.Mutex
	lastSweep time.Time
}

// rateLimiterEntry holds a rate limiter and its last access time in unix
// nanoseconds for eviction.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

// RateLimitMiddleware enforces per-IP rate limiting on the order API. Uses a
// token bucket per client IP via golang.org/x/time/rate. Returns 429 with a
// Retry-After header when the limit is exceeded.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &rateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := store.getLimiter(clientIP)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()

			if logger != nil {
				logger.Debug("rate limit exceeded",
					slog.String("client_ip", clientIP),
					slog.Int("retry_after", retryAfter))
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests from this IP. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// getLimiter retrieves or creates a rate limiter for an IP address. LoadOrStore
// keeps concurrent first requests from the same IP on one limiter.
func (s *rateLimiterStore) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	s.maybeSweep(now)

	val, loaded := s.limiters.Load(ip)
	if !loaded {
		val, _ = s.limiters.LoadOrStore(ip, &rateLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst),
		})
	}

	entry := val.(*rateLimiterEntry)
	entry.lastAccess.Store(now.UnixNano())
	return entry.limiter
}

// maybeSweep evicts limiters idle for longer than limiterIdleTimeout, at most
// once per limiterSweepInterval so the request path stays cheap.
func (s *rateLimiterStore) maybeSweep(now time.Time) {
	s.mu.Lock()
	if now.Sub(s.lastSweep) < limiterSweepInterval {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	s.mu.Unlock()

	cutoff := now.Add(-limiterIdleTimeout).UnixNano()
	s.limiters.Range(func(key, val any) bool {
		if val.(*rateLimiterEntry).lastAccess.Load() < cutoff {
			s.limiters.Delete(key)
		}
		return true
	})
}
