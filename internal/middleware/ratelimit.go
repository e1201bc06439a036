// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// writeLog holds the times of one client's recent writes, oldest first.
type writeLog struct {
	mu    sync.Mutex
	times []time.Time
}

// prune drops entries at or before cutoff.
func (l *writeLog) prune(cutoff time.Time) {
	i := 0
	for i < len(l.times) && !l.times[i].After(cutoff) {
		i++
	}
	l.times = l.times[i:]
}

// decision is the outcome of one rate limit check.
type decision struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
}

// RateLimiter limits writes per client IP over a sliding window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*writeLog
	limit   int
	window  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
}

// NewRateLimiter allows limit writes per window for each client and starts
// a goroutine that forgets idle clients. Call Stop to end it. It panics if
// limit or window is not positive; pass a nil limiter to the router to
// disable limiting instead.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 || window <= 0 {
		panic(fmt.Sprintf("ratelimit: limit and window must be positive, got %d per %s", limit, window))
	}
	rl := &RateLimiter{
		clients: make(map[string]*writeLog),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(max(window, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.sweep()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background sweep.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) logFor(key string) *writeLog {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.clients[key]
	if !ok {
		l = &writeLog{}
		rl.clients[key] = l
	}
	return l
}

// check records a write for key if it fits in the window.
func (rl *RateLimiter) check(key string) decision {
	now := rl.now()
	l := rl.logFor(key)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(now.Add(-rl.window))

	if len(l.times) >= rl.limit {
		// The oldest write leaves the window first.
		return decision{retryAfter: l.times[0].Add(rl.window).Sub(now)}
	}
	l.times = append(l.times, now)
	return decision{allowed: true, remaining: rl.limit - len(l.times)}
}

// sweep forgets clients with no write inside the window.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, l := range rl.clients {
		l.mu.Lock()
		l.prune(cutoff)
		idle := len(l.times) == 0
		l.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware rate-limits mutating requests by client IP. Reads of the tree
// and rule listings are always served.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		d := rl.check(clientIP(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		if !d.allowed {
			secs := int(math.Ceil(d.retryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			WriteError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// clientIP returns the originating client address. Proxy headers win over
// the socket address; for X-Forwarded-For the leftmost entry is used.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
