package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/observability"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// How long an idle client keeps its bucket before eviction
const visitorTTL = 3 * time.Minute

// visitor holds the rate limiter and last seen time for one client IP
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a per-client-IP token bucket across the routes it
// wraps. Idle clients are evicted by a background sweep.
type Limiter struct {
	config config.RateLimitConfig
	logger *logger.Logger

	mu       sync.Mutex
	visitors map[string]*visitor

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a rate limiter and starts its eviction sweep
func NewLimiter(cfg config.RateLimitConfig, log *logger.Logger) *Limiter {
	l := &Limiter{
		config:   cfg,
		logger:   log.Named("ratelimit"),
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Stop ends the eviction sweep
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow reports whether a request from the given IP is within budget
func (l *Limiter) Allow(ip string) bool {
	if !l.config.Enabled {
		return true
	}
	return l.limiterFor(ip).Allow()
}

// limiterFor returns the bucket for an IP, creating one if needed
func (l *Limiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, exists := l.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(float64(l.config.RequestsPerMinute)/60.0), l.config.Burst)
		l.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupLoop periodically evicts clients that have gone idle
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *Limiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if time.Since(v.lastSeen) > visitorTTL {
			delete(l.visitors, ip)
		}
	}
}

// retryAfterSeconds is the Retry-After hint: the time one token takes
// to become available, rounded up
func (l *Limiter) retryAfterSeconds() int {
	if l.config.RequestsPerMinute <= 0 {
		return 60
	}
	secs := (60 + l.config.RequestsPerMinute - 1) / l.config.RequestsPerMinute
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Middleware wraps a route with the per-IP budget. Denied requests get
// a 429 with Retry-After; the body comes from the limited handler so
// HTML routes can render an error page while API routes send JSON.
func (l *Limiter) Middleware(limited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if l.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			observability.RateLimitDeniedTotal.Inc()
			l.logger.Debug("Rate limit exceeded",
				logger.String("ip", ip),
				logger.String("path", r.URL.Path))

			w.Header().Set("Retry-After", fmt.Sprintf("%d", l.retryAfterSeconds()))
			limited(w, r)
		})
	}
}

// JSONLimited is the 429 body for API and embed routes
func JSONLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "RATE_LIMITED",
			"message": "Too many requests, slow down and try again shortly",
		},
	})
}

// ClientIP extracts the client address, honoring X-Forwarded-For set
// by the front proxy
func ClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}
