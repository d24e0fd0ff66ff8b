/*
Package limiter provides request rate limiting based on client IP addresses.

It uses the Token Bucket algorithm (rate.Limiter) to control the request frequency for each
client IP on the local HTTP surface, and runs a cleanup goroutine that periodically removes
idle limiters so the map does not grow without bound.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lumochat/internal/pkg/errs"
	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/resp"
)

// cleanupInterval is how often idle limiters are swept.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter implements a rate limiter keyed by client IP address.
type IPRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu sync.RWMutex

	// limits stores the map from client IP address to its *rate.Limiter.
	limits map[string]*rate.Limiter

	// r is the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size) of each limiter.
	b int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a new IPRateLimiter with rate r and burst b, and starts the
// background cleanup goroutine. Call Stop to end it.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter retrieves the rate limiter for the given IP address, creating it when missing.
// Creation uses double-checked locking so concurrent first requests share one limiter.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// Len returns the number of tracked IP addresses.
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.limits)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case now := <-ticker.C:
			removed, remaining := i.sweep(now)
			logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
		}
	}
}

// sweep removes limiters whose bucket is full at now, meaning the IP has been idle.
func (i *IPRateLimiter) sweep(now time.Time) (removed, remaining int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}

	return removed, len(i.limits)
}

// Middleware returns an HTTP middleware that rejects requests over the limit
// with a 429 Too Many Requests error.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !i.GetLimiter(ip).Allow() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
