// Package ratelimit throttles outbound model calls with a sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultWindow = time.Minute

// Option customizes a Limiter.
type Option func(*Limiter)

func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleeper replaces the blocking wait. The sleeper must honour ctx.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// Limiter admits at most maxRequests calls in any trailing window. All
// callers share one budget.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Limiter. maxRequests <= 0 disables throttling.
func New(maxRequests int, opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: maxRequests,
		window:      defaultWindow,
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Wait blocks until one more call fits in the window and records it. It only
// fails when ctx is done while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.maxRequests <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.stamps[0])
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		log.Debug().
			Dur("wait", wait).
			Int("max_requests", l.maxRequests).
			Msg("rate limit reached, waiting")
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.stamps) && now.Sub(l.stamps[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[cut:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
