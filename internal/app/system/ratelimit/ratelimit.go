// internal/app/system/ratelimit/ratelimit.go

// Package ratelimit guards the login endpoint with in-memory sliding
// windows keyed per client IP and per organization/username account.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key within a fixed-size window. It is safe
// for concurrent use. State lives only in process memory; restarting the
// service resets all windows, which is acceptable for login throttling.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]bucket
	limit    int
	duration time.Duration
}

type bucket struct {
	n     int
	start time.Time
}

func (b bucket) expired(now time.Time, d time.Duration) bool {
	return now.Sub(b.start) >= d
}

// New creates a limiter allowing limit requests per duration for each key.
// A background sweep drops stale buckets so abandoned keys do not
// accumulate.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]bucket),
		limit:    limit,
		duration: duration,
	}
	go l.sweep(2 * duration)
	return l
}

// Allow records an attempt for key and reports whether it is within the
// limit for the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b := l.buckets[key]
	if b.n == 0 || b.expired(now, l.duration) {
		l.buckets[key] = bucket{n: 1, start: now}
		return true
	}
	if b.n >= l.limit {
		return false
	}
	b.n++
	l.buckets[key] = b
	return true
}

// Remaining reports how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b.n == 0 || b.expired(time.Now(), l.duration) {
		return l.limit
	}
	if b.n >= l.limit {
		return 0
	}
	return l.limit - b.n
}

// Reset forgets all attempts recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for key, b := range l.buckets {
			if b.expired(now, l.duration) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP extracts the client IP from an HTTP request. It checks
// X-Forwarded-For and X-Real-IP headers first (for proxied requests), then
// falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not carry a port.
		return r.RemoteAddr
	}
	return host
}

// LoginLimiter throttles login attempts on two axes: per client IP, which
// slows distributed guessing, and per organization/username account, which
// caps attempts against one credential regardless of source.
type LoginLimiter struct {
	ipLimiter      *Limiter
	accountLimiter *Limiter
}

// NewLoginLimiter creates a limiter with the default login thresholds:
// 10 attempts per IP per minute, 5 attempts per account per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

// NewLoginLimiterWithConfig creates a login limiter with custom thresholds.
func NewLoginLimiterWithConfig(ipLimit int, ipDuration time.Duration, accountLimit int, accountDuration time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:      New(ipLimit, ipDuration),
		accountLimiter: New(accountLimit, accountDuration),
	}
}

// accountKey scopes the per-account window to the organization, so that a
// username shared across organizations is limited independently.
func accountKey(organization, username string) string {
	return strings.ToLower(strings.TrimSpace(organization)) + "/" + strings.ToLower(strings.TrimSpace(username))
}

// Check records a login attempt and reports whether it may proceed. The
// reason explains a block in terms safe to show the caller. A nil
// *LoginLimiter allows everything.
func (ll *LoginLimiter) Check(r *http.Request, organization, username string) (bool, string) {
	if ll == nil {
		return true, ""
	}

	if !ll.ipLimiter.Allow(ClientIP(r)) {
		return false, "too many login attempts; wait a minute before trying again"
	}

	if username != "" {
		if !ll.accountLimiter.Allow(accountKey(organization, username)) {
			return false, "too many login attempts for this account; wait a few minutes"
		}
	}

	return true, ""
}

// ResetAccount clears the account window after a successful login.
func (ll *LoginLimiter) ResetAccount(organization, username string) {
	if ll == nil || username == "" {
		return
	}
	ll.accountLimiter.Reset(accountKey(organization, username))
}
