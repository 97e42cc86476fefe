// Package ratelimit bounds outbound request rate to an external provider.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces at most N requests per rolling 60-second window and a
// minimum spacing of window/N between consecutive requests. One shared
// instance serves all callers targeting the same provider; Acquire holds the
// limiter for the duration of any wait, so callers serialize through it.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	minGap time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a limiter allowing perMinute requests per rolling minute.
func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	window := time.Minute
	return &Limiter{
		limit:  perMinute,
		window: window,
		minGap: window / time.Duration(perMinute),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// WithClock sets custom clock and sleep functions for deterministic tests.
func (l *Limiter) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Limiter {
	l.now = now
	l.sleep = sleep
	return l
}

// Acquire blocks until issuing another request would violate neither the
// windowed cap nor the floor inter-request interval, then records the
// request. It returns early only when ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		now := l.now()
		l.prune(now)

		var wait time.Duration
		if len(l.stamps) >= l.limit {
			if d := l.stamps[0].Add(l.window).Sub(now); d > wait {
				wait = d
			}
		}
		if n := len(l.stamps); n > 0 {
			if d := l.stamps[n-1].Add(l.minGap).Sub(now); d > wait {
				wait = d
			}
		}

		if wait <= 0 {
			l.stamps = append(l.stamps, now)
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune discards request timestamps older than the window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
