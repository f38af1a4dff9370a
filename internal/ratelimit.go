package internal

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// clientLimiter keeps one token bucket per client IP. Buckets idle past the
// ttl are pruned on the way through, so the map stays bounded by the set of
// recently active clients.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	rps     float64
	burst   float64
	ttl     time.Duration
	sweep   time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimitHandler wraps an HTTP handler with per-client rate limiting.
// A non-positive rps disables limiting entirely.
func NewRateLimitHandler(next http.Handler, rps int64, burst int64, ttl time.Duration) http.Handler {
	if rps <= 0 {
		return next
	}
	limiter := &clientLimiter{
		clients: make(map[string]*bucket),
		rps:     float64(rps),
		burst:   float64(burst),
		ttl:     ttl,
	}
	if limiter.burst < 1 {
		limiter.burst = limiter.rps
		if limiter.burst < 1 {
			limiter.burst = 1
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(clientIP(r), time.Now()) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *clientLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	entry, ok := l.clients[key]
	if !ok {
		l.clients[key] = &bucket{tokens: l.burst - 1, seen: now}
		return true
	}

	entry.tokens += now.Sub(entry.seen).Seconds() * l.rps
	if entry.tokens > l.burst {
		entry.tokens = l.burst
	}
	entry.seen = now

	if entry.tokens < 1 {
		return false
	}
	entry.tokens--
	return true
}

// prune drops buckets idle past the ttl, at most once per ttl interval.
// Caller holds the lock.
func (l *clientLimiter) prune(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.sweep) < l.ttl {
		return
	}
	l.sweep = now
	for key, entry := range l.clients {
		if now.Sub(entry.seen) > l.ttl {
			delete(l.clients, key)
		}
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if comma := strings.IndexByte(fwd, ','); comma >= 0 {
			fwd = fwd[:comma]
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
