package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateLimitMiddleware provides fixed-window rate limiting per client IP
type RateLimitMiddleware struct {
	counters   *cache.Cache
	trustProxy bool
}

// NewRateLimitMiddleware creates a rate limiter counting requests per window.
// Forwarding headers are only used to identify clients when trustProxy is set.
func NewRateLimitMiddleware(window time.Duration, trustProxy bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		counters:   cache.New(window, 2*window),
		trustProxy: trustProxy,
	}
}

// RateLimit allows at most maxRequests per client IP in each window.
// A maxRequests of zero disables the limit.
func (m *RateLimitMiddleware) RateLimit(maxRequests int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequests <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			if m.hit(getClientIP(r, m.trustProxy)) > maxRequests {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// hit counts one request and returns the count inside the current window.
func (m *RateLimitMiddleware) hit(key string) int {
	if err := m.counters.Add(key, 1, cache.DefaultExpiration); err == nil {
		return 1
	}
	count, err := m.counters.IncrementInt(key, 1)
	if err != nil {
		// expired between Add and IncrementInt; start a new window
		m.counters.Set(key, 1, cache.DefaultExpiration)
		return 1
	}
	return count
}

// getClientIP extracts the client IP from the request. Forwarding headers are
// client-controlled and only honoured behind a trusted proxy.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			return strings.TrimSpace(strings.Split(ip, ",")[0])
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
