package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByClientIP buckets requests by client address.
func ByClientIP(r *http.Request) string {
	return getClientIP(r)
}

// ByIdentity buckets authenticated requests by user and falls back to the
// client address. Polling clients behind one NAT then do not starve each other.
func ByIdentity(r *http.Request) string {
	if identity, ok := GetIdentity(r.Context()); ok {
		return "user:" + identity.UserID.String()
	}
	return "ip:" + getClientIP(r)
}

// RateLimiter limits requests per key with a token bucket each
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	keyFunc  KeyFunc
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	RequestsPerSecond float64       // Requests allowed per second
	BurstSize         int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up old visitors
	TTL               time.Duration // How long to keep inactive visitors
	KeyFunc           KeyFunc       // Defaults to ByClientIP
}

// DefaultRateLimiterConfig returns a sensible default configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		CleanupInterval:   time.Minute,
		TTL:               3 * time.Minute,
		KeyFunc:           ByClientIP,
	}
}

// PollRateLimiterConfig returns a stricter config for the polling endpoints
func PollRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
		TTL:               5 * time.Minute,
		KeyFunc:           ByIdentity,
	}
}

// NewRateLimiter creates a rate limiter. The cleanup goroutine runs until
// ctx is cancelled.
func NewRateLimiter(ctx context.Context, cfg RateLimiterConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ByClientIP
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
		ttl:      cfg.TTL,
		keyFunc:  cfg.KeyFunc,
	}

	if cfg.CleanupInterval > 0 {
		go rl.cleanupVisitors(ctx, cfg.CleanupInterval)
	}

	return rl
}

// Allow checks if a request for key is allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// cleanupVisitors removes visitors that haven't been seen recently
func (rl *RateLimiter) cleanupVisitors(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > rl.ttl {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware returns an HTTP middleware that rate limits requests
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.keyFunc(r)) {
			appErr := apperrors.FromError(apperrors.ErrRateLimited)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(appErr.StatusCode)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request
// It checks X-Forwarded-For and X-Real-IP headers first (for reverse proxies)
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
