package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Throttle spaces successive operations at least interval apart, with optional
// jitter. The first Wait returns immediately. It is safe for concurrent use by
// multiple goroutines; concurrent callers are handed consecutive slots, so the
// spacing holds across all of them.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle with the given minimum spacing and jitter
// factor. Jitter is clamped to [0, 1] and only ever lengthens the spacing.
// If interval is <= 0, the throttle does not block.
func NewThrottle(interval time.Duration, jitter float64) *Throttle {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Throttle{
		interval: interval,
		jitter:   jitter,
		now:      time.Now,
		sleep:    Sleep,
	}
}

// WithClock replaces the time source and sleep function, for tests.
func (t *Throttle) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Throttle {
	t.now = now
	t.sleep = sleep
	return t
}

// Interval returns the configured minimum spacing.
func (t *Throttle) Interval() time.Duration {
	if t == nil {
		return 0
	}
	return t.interval
}

// Wait blocks until the caller's slot comes up or ctx is canceled.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return nil
	}

	t.mu.Lock()
	now := t.now()
	start := t.next
	if start.Before(now) {
		start = now
	}
	spacing := t.interval
	if t.jitter > 0 {
		spacing += time.Duration(float64(t.interval) * t.jitter * rand.Float64())
	}
	t.next = start.Add(spacing)
	t.mu.Unlock()

	delay := start.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}
	return t.sleep(ctx, delay)
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
