package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeLimiter(max int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(max, WithClock(clock.Now), WithSleeper(clock.Sleep)), clock
}

func TestWaitAdmitsUpToMaxWithoutBlocking(t *testing.T) {
	t.Parallel()

	l, clock := newFakeLimiter(3)
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		clock.Advance(time.Second)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", clock.sleeps)
	}

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 57*time.Second {
		t.Fatalf("fourth call must wait for the oldest stamp to expire, sleeps = %v", clock.sleeps)
	}
}

func TestWaitBlocksOnceWindowIsFull(t *testing.T) {
	t.Parallel()

	l, clock := newFakeLimiter(2)
	ctx := context.Background()

	_ = l.Wait(ctx)
	clock.Advance(10 * time.Second)
	_ = l.Wait(ctx)
	clock.Advance(5 * time.Second)

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("expected exactly one sleep, got %v", clock.sleeps)
	}
	// oldest stamp is 15s old, so the caller waits for the remaining 45s
	if clock.sleeps[0] != 45*time.Second {
		t.Fatalf("sleep = %v, want 45s", clock.sleeps[0])
	}
}

func TestWaitWindowSlides(t *testing.T) {
	t.Parallel()

	l, clock := newFakeLimiter(1)
	ctx := context.Background()

	_ = l.Wait(ctx)
	clock.Advance(61 * time.Second)
	_ = l.Wait(ctx)
	if len(clock.sleeps) != 0 {
		t.Fatalf("expired stamps must not count, got sleeps %v", clock.sleeps)
	}
}

func TestWaitHonoursContextCancellation(t *testing.T) {
	t.Parallel()

	l := New(1, WithWindow(time.Hour))
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestWaitRealClockBlocks(t *testing.T) {
	t.Parallel()

	l := New(2, WithWindow(150*time.Millisecond))
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("third call returned after %v, expected it to block", elapsed)
	}
}

func TestUnlimitedLimiterNeverWaits(t *testing.T) {
	t.Parallel()

	l, clock := newFakeLimiter(0)
	for i := 0; i < 100; i++ {
		_ = l.Wait(context.Background())
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("unlimited limiter slept: %v", clock.sleeps)
	}
}
