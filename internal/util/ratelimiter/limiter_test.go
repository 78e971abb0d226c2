package ratelimiter

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(interval time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(interval)
	l.now = clock.Now
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		advances []time.Duration // clock advance before each Allow() call
		want     []bool
	}{
		{
			name:     "first call always allowed",
			interval: 100 * time.Millisecond,
			advances: []time.Duration{0},
			want:     []bool{true},
		},
		{
			name:     "second call immediately after is blocked",
			interval: 100 * time.Millisecond,
			advances: []time.Duration{0, 0},
			want:     []bool{true, false},
		},
		{
			name:     "call after interval is allowed",
			interval: 50 * time.Millisecond,
			advances: []time.Duration{0, 60 * time.Millisecond},
			want:     []bool{true, true},
		},
		{
			name:     "call exactly at interval is allowed",
			interval: time.Second,
			advances: []time.Duration{0, time.Second},
			want:     []bool{true, true},
		},
		{
			name:     "zero interval never blocks",
			interval: 0,
			advances: []time.Duration{0, 0, 0},
			want:     []bool{true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, clock := newTestLimiter(tt.interval)

			for i, adv := range tt.advances {
				clock.Advance(adv)

				allowed, waitTime := limiter.Allow()
				if allowed != tt.want[i] {
					t.Errorf("call %d: Allow() = %v, want %v", i, allowed, tt.want[i])
				}
				if !allowed && waitTime <= 0 {
					t.Errorf("call %d: blocked but waitTime = %v, want > 0", i, waitTime)
				}
				if allowed && waitTime != 0 {
					t.Errorf("call %d: allowed but waitTime = %v, want 0", i, waitTime)
				}
			}
		})
	}
}

func TestLimiter_WaitTime(t *testing.T) {
	limiter, clock := newTestLimiter(time.Second)

	limiter.Allow()
	clock.Advance(300 * time.Millisecond)

	_, wait := limiter.Allow()
	if wait != 700*time.Millisecond {
		t.Errorf("waitTime = %v, want 700ms", wait)
	}
}

func TestLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(time.Hour)

	if allowed, _ := limiter.Allow(); !allowed {
		t.Fatal("first call should be allowed")
	}
	if allowed, _ := limiter.Allow(); allowed {
		t.Fatal("second call should be blocked")
	}

	limiter.Reset()

	if allowed, _ := limiter.Allow(); !allowed {
		t.Error("call after Reset should be allowed")
	}
}

func TestLimiter_Nil(t *testing.T) {
	var limiter *Limiter

	if allowed, _ := limiter.Allow(); !allowed {
		t.Error("nil limiter should allow")
	}
	limiter.Reset()
	if limiter.Interval() != 0 {
		t.Error("nil limiter interval should be 0")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedCount != 1 {
		t.Errorf("allowed %d concurrent calls, want 1", allowedCount)
	}
}
