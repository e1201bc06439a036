package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock is a settable time source for the limiter.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := NewRateLimiter(limit, window)
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestNewRateLimiterRejectsNonPositive(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"zero limit", 0, time.Minute},
		{"negative limit", -1, time.Minute},
		{"zero window", 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("NewRateLimiter(%d, %s) should panic", tt.limit, tt.window)
				}
			}()
			rl := NewRateLimiter(tt.limit, tt.window)
			rl.Stop()
		})
	}
}

func TestRateLimiterCheck(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)

	for i, wantRemaining := range []int{2, 1, 0} {
		d := rl.check("test-ip")
		if !d.allowed {
			t.Fatalf("write %d should be allowed", i+1)
		}
		if d.remaining != wantRemaining {
			t.Errorf("write %d remaining: got %d, want %d", i+1, d.remaining, wantRemaining)
		}
	}

	if rl.check("test-ip").allowed {
		t.Error("4th write should be limited")
	}
	if !rl.check("other-ip").allowed {
		t.Error("a different client has its own window")
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2, time.Minute)

	rl.check("ip")
	clock.advance(20 * time.Second)
	rl.check("ip")

	d := rl.check("ip")
	if d.allowed {
		t.Fatal("third write inside the window should be limited")
	}
	if d.retryAfter != 40*time.Second {
		t.Errorf("retryAfter: got %v, want 40s (until the first write expires)", d.retryAfter)
	}

	// Only the first write has left the window.
	clock.advance(40 * time.Second)
	if !rl.check("ip").allowed {
		t.Error("write should be allowed once the oldest expires")
	}
	if rl.check("ip").allowed {
		t.Error("second write still inside the window should be limited")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl, clock := newTestLimiter(t, 2, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/rules", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		rr := post()
		if rr.Code != http.StatusOK {
			t.Fatalf("write %d: got status %d, want 200", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("X-RateLimit-Limit: got %q", got)
		}
	}

	clock.advance(30 * time.Second)
	rr := post()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After: got %q, want %q", got, "30")
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining: got %q, want 0", got)
	}

	// Reads are never limited.
	req := httptest.NewRequest(http.MethodGet, "/api/categories/tree", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("GET after limit: got status %d, want 200", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("reads should not carry rate limit headers")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "10.0.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"forwarded chain", "10.0.0.1, 172.16.0.1, 192.168.1.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"real ip", "", "10.0.0.2", "192.168.1.1:1234", "10.0.0.2"},
		{"remote addr", "", "", "192.168.1.1:1234", "192.168.1.1"},
		{"remote addr without port", "", "", "192.168.1.1", "192.168.1.1"},
		{"ipv6 remote addr", "", "", "[::1]:8080", "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl, clock := newTestLimiter(t, 10, time.Minute)

	rl.check("ip-old")
	clock.advance(45 * time.Second)
	rl.check("ip-fresh")
	clock.advance(30 * time.Second)

	rl.sweep()

	rl.mu.Lock()
	_, oldExists := rl.clients["ip-old"]
	_, freshExists := rl.clients["ip-fresh"]
	rl.mu.Unlock()

	if oldExists {
		t.Error("ip-old has no write inside the window and should be forgotten")
	}
	if !freshExists {
		t.Error("ip-fresh wrote 30s ago and should be kept")
	}
}
