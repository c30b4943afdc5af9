package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepEvery bounds how many requests may pass between two sweeps of
// expired windows.
const sweepEvery = 1000

type visitor struct {
	count       int
	windowStart time.Time
}

// IPLimiter counts requests per client IP in fixed windows. A client gets
// max requests per window; the count resets once its window has elapsed.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	max      int
	window   time.Duration
	sweeper  *rate.Sometimes
	now      func() time.Time
}

// NewIPLimiter creates a limiter allowing max requests per window for each IP
func NewIPLimiter(window time.Duration, max int) *IPLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if max <= 0 {
		max = 100
	}
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		max:      max,
		window:   window,
		sweeper:  &rate.Sometimes{Every: sweepEvery, Interval: window},
		now:      time.Now,
	}
}

// LimitResult describes the caller's budget after a request was counted
type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Allow counts one request for ip against its current window
func (l *IPLimiter) Allow(ip string) LimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweeper.Do(func() { l.sweep(now) })

	v, ok := l.visitors[ip]
	if !ok || now.Sub(v.windowStart) >= l.window {
		v = &visitor{windowStart: now}
		l.visitors[ip] = v
	}
	v.count++

	remaining := l.max - v.count
	if remaining < 0 {
		remaining = 0
	}

	return LimitResult{
		Allowed:   v.count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		Reset:     v.windowStart.Add(l.window).Sub(now),
	}
}

// sweep drops visitors whose window has run out
func (l *IPLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.windowStart) >= l.window {
			delete(l.visitors, ip)
		}
	}
}
