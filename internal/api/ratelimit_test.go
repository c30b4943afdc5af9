package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newTestLimiter(window time.Duration, max int) (*IPLimiter, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPLimiter(window, max)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestIPLimiter_Allow(t *testing.T) {
	limiter, now := newTestLimiter(time.Minute, 3)

	for i := 2; i >= 0; i-- {
		result := limiter.Allow("10.0.0.1")
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, i, result.Remaining)
	}

	*now = now.Add(15 * time.Second)
	result := limiter.Allow("10.0.0.1")
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 45*time.Second, result.Reset)

	// other clients have their own budget
	assert.True(t, limiter.Allow("10.0.0.2").Allowed)

	// the count starts over once the window has elapsed
	*now = now.Add(45 * time.Second)
	result = limiter.Allow("10.0.0.1")
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, time.Minute, result.Reset)
}

func TestIPLimiter_CapHoldsAcrossWindow(t *testing.T) {
	limiter, now := newTestLimiter(3*time.Second, 3)
	start := *now

	offsets := []time.Duration{0, 0, 0, time.Second, 2 * time.Second, 2900 * time.Millisecond}
	allowed := 0
	for _, offset := range offsets {
		*now = start.Add(offset)
		if limiter.Allow("10.0.0.1").Allowed {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)

	limiter, now = newTestLimiter(time.Minute, 3)
	start = *now
	for i := 0; i < 3; i++ {
		*now = start.Add(time.Duration(i) * 15 * time.Second)
		assert.True(t, limiter.Allow("10.0.0.1").Allowed)
	}
	*now = start.Add(59 * time.Second)
	result := limiter.Allow("10.0.0.1")
	assert.False(t, result.Allowed)
	assert.Equal(t, time.Second, result.Reset)
}

func TestIPLimiter_SweepsExpiredWindows(t *testing.T) {
	limiter, now := newTestLimiter(time.Minute, 5)
	limiter.sweeper = &rate.Sometimes{Every: 1}

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	assert.Len(t, limiter.visitors, 2)

	*now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.3")
	assert.Len(t, limiter.visitors, 1)
}

func TestNewIPLimiter_Defaults(t *testing.T) {
	limiter := NewIPLimiter(0, 0)
	assert.Equal(t, 100, limiter.max)
	assert.Equal(t, 15*time.Minute, limiter.window)
}
