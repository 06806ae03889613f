package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration. Requests in excess of
// MaxRequests within the sliding Window are rejected with 429.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 100,
		Window:      time.Minute,
	}
}

// slidingWindow tracks request timestamps for one key inside the window.
type slidingWindow struct {
	mu     sync.Mutex
	events []time.Time
}

// allow records the request at now and reports whether it is within the
// limit. When the limit is exceeded it also returns the number of seconds
// until the oldest tracked request leaves the window.
func (w *slidingWindow) allow(now time.Time, max int, window time.Duration) (bool, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-window)
	kept := w.events[:0]
	for _, ts := range w.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.events = kept

	if len(w.events) >= max {
		retryAfter := int(w.events[0].Sub(cutoff)/time.Second) + 1
		return false, retryAfter
	}

	w.events = append(w.events, now)
	return true, 0
}

// rateLimiterStore holds per-key sliding windows.
type rateLimiterStore struct {
	mu      sync.RWMutex
	windows map[string]*slidingWindow
	config  RateLimitConfig
}

func newRateLimiterStore(cfg RateLimitConfig) *rateLimiterStore {
	return &rateLimiterStore{
		windows: make(map[string]*slidingWindow),
		config:  cfg,
	}
}

func (s *rateLimiterStore) getWindow(key string) *slidingWindow {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring write lock
	if w, ok := s.windows[key]; ok {
		return w
	}
	w = &slidingWindow{}
	s.windows[key] = w
	return w
}

// RateLimit returns a sliding-window rate limiting middleware keyed by the
// caller's source IP. Requests over the limit are rejected before any other
// processing with a Retry-After hint.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		cfg = DefaultRateLimitConfig()
	}
	store := newRateLimiterStore(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			w := store.getWindow(c.RealIP())
			ok, retryAfter := w.allow(time.Now(), cfg.MaxRequests, cfg.Window)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
			return next(c)
		}
	}
}
