package handler

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self'; img-src 'self' https: data:; frame-ancestors 'none'"

var securityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-XSS-Protection", "0"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"Strict-Transport-Security", "max-age=63072000; includeSubDomains"},
}

// SecurityHeaders sets the standard hardening headers and a CSP that allows
// avatars from any https origin.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		// The API docs page loads its renderer from a CDN.
		if r.URL.Path != "/api/docs" {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}

// LimitBody caps the request body at n bytes.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter allows at most limit requests per client within a sliding
// window. Clients are identified by IP; behind a reverse proxy the address
// is taken from X-Forwarded-For.
type RateLimiter struct {
	limit   int
	window  time.Duration
	proxies int
	now     func() time.Time

	// Exceeded writes the response for a rejected request. Retry-After is
	// already set. Defaults to a plain-text 429.
	Exceeded func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

	mu      sync.Mutex
	clients map[string][]time.Time
	done    chan struct{}
	stop    sync.Once
}

// NewRateLimiter starts a limiter and its sweeper goroutine. It trusts one
// reverse proxy (nginx) in front of the server. Call Stop when done.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		proxies: 1,
		now:     time.Now,
		clients: make(map[string][]time.Time),
		done:    make(chan struct{}),
	}
	if limit > 0 {
		go rl.sweep(5 * window)
	}
	return rl
}

// Stop ends the sweeper goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

// sweep drops clients with no request inside the window.
func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		cutoff := rl.now().Add(-rl.window)
		for ip, hits := range rl.clients {
			if hits = prune(hits, cutoff); len(hits) == 0 {
				delete(rl.clients, ip)
			} else {
				rl.clients[ip] = hits
			}
		}
		rl.mu.Unlock()
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	return slices.DeleteFunc(hits, func(ts time.Time) bool { return !ts.After(cutoff) })
}

// allow records a hit for key, or reports how long until the next one is allowed.
func (rl *RateLimiter) allow(key string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	hits := prune(rl.clients[key], now.Add(-rl.window))
	if len(hits) >= rl.limit {
		rl.clients[key] = hits
		return hits[0].Add(rl.window).Sub(now), false
	}
	rl.clients[key] = append(hits, now)
	return 0, true
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
// A limit of zero or less disables the limiter.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.proxies)
		retryAfter, ok := rl.allow(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		slog.Warn("rate limit exceeded", "ip", ip, "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retryAfter.Seconds())+1)))
		if rl.Exceeded != nil {
			rl.Exceeded(w, r, retryAfter)
			return
		}
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}

// clientIP returns the address the closest trusted proxy saw. Entries to the
// left of it in X-Forwarded-For are client-controlled and ignored.
func clientIP(r *http.Request, proxies int) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && proxies > 0 {
		hops := strings.Split(xff, ",")
		if i := len(hops) - proxies; i >= 0 {
			return strings.TrimSpace(hops[i])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
