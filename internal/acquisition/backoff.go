package acquisition

import (
	"math/rand"
	"time"
)

// Backoff computes retry delays: capped binary exponential growth plus a
// proportional random jitter.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter float64 // fraction of the delay added as uniform random jitter

	rand func() float64
}

// DefaultBackoff returns the retry policy used against the data providers:
// 1s base, 60s cap, 10% jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   time.Second,
		Cap:    60 * time.Second,
		Jitter: 0.1,
	}
}

// BaseDelay returns the deterministic part of the delay for a 0-based
// attempt: min(base * 2^attempt, cap). Non-decreasing in attempt.
func (b Backoff) BaseDelay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	cap := b.Cap
	if cap <= 0 {
		cap = 60 * time.Second
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}

// Delay returns the full delay for an attempt: BaseDelay plus
// uniform(0, Jitter*BaseDelay).
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.BaseDelay(attempt)
	if b.Jitter <= 0 {
		return delay
	}
	random := b.rand
	if random == nil {
		random = rand.Float64
	}
	return delay + time.Duration(random()*b.Jitter*float64(delay))
}
