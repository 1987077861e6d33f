package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	for _, kv := range securityHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s: want %q, got %q", kv[0], kv[1], got)
		}
	}
	csp := rec.Header().Get("Content-Security-Policy")
	for _, d := range []string{"default-src 'self'", "script-src 'self'", "img-src 'self' https: data:", "frame-ancestors 'none'"} {
		if !strings.Contains(csp, d) {
			t.Errorf("CSP missing %q: %s", d, csp)
		}
	}
}

func TestSecurityHeaders_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest("GET", "/contacts/x", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rec.Code)
	}
}

func TestSecurityHeaders_NoCSPOnAPIDocs(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/docs", nil))

	if csp := rec.Header().Get("Content-Security-Policy"); csp != "" {
		t.Errorf("expected no CSP on docs page, got %q", csp)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected other security headers to remain")
	}
}

func TestLimitBody_RejectsOversizedForm(t *testing.T) {
	var parseErr error
	handler := LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseErr = r.ParseForm()
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader("first=abcdefghijklmnop"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if parseErr == nil {
		t.Error("expected error for body over the limit")
	}
}

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, time.Minute)
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func post(h http.Handler, remote, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_Window(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)
	h := rl.Middleware(okHandler)

	for i := 0; i < 3; i++ {
		if rec := post(h, "192.168.1.1:1234", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		clock.advance(10 * time.Second)
	}

	rec := post(h, "192.168.1.1:1234", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// first hit at 0s, now 30s: the slot frees at 60s
	if ra := rec.Header().Get("Retry-After"); ra != "31" {
		t.Errorf("expected Retry-After 31, got %q", ra)
	}

	clock.advance(31 * time.Second)
	if rec := post(h, "192.168.1.1:1234", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 after the oldest hit left the window, got %d", rec.Code)
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(okHandler)

	post(h, "10.0.0.1:1234", "")
	if rec := post(h, "10.0.0.2:1234", ""); rec.Code != http.StatusOK {
		t.Errorf("different IP should not be rate limited, got %d", rec.Code)
	}
	if rec := post(h, "10.0.0.1:5678", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("same IP on another port should be limited, got %d", rec.Code)
	}
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	tests := []struct {
		name       string
		first      string
		second     string
		wantStatus int
	}{
		{"same client behind proxy", "203.0.113.50", "203.0.113.50", http.StatusTooManyRequests},
		{"spoofed leftmost entry ignored", "203.0.113.50", "9.9.9.9, 203.0.113.50", http.StatusTooManyRequests},
		{"different client behind proxy", "203.0.113.50", "203.0.113.51", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newTestLimiter(t, 1)
			h := rl.Middleware(okHandler)

			if rec := post(h, "10.0.0.99:1234", tt.first); rec.Code != http.StatusOK {
				t.Fatalf("first request: expected 200, got %d", rec.Code)
			}
			if rec := post(h, "10.0.0.99:1234", tt.second); rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRateLimiter_Exceeded(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	var gotRetry time.Duration
	rl.Exceeded = func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
		gotRetry = retryAfter
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("custom"))
	}
	h := rl.Middleware(okHandler)

	post(h, "10.0.0.1:1", "")
	rec := post(h, "10.0.0.1:1", "")

	if rec.Body.String() != "custom" {
		t.Errorf("expected custom body, got %q", rec.Body.String())
	}
	if gotRetry != time.Minute {
		t.Errorf("expected retry after 1m, got %v", gotRetry)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_ZeroLimitDisabled(t *testing.T) {
	rl, _ := newTestLimiter(t, 0)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))

	for range 100 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
	}
}
