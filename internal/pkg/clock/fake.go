package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually driven Clock.
//
// Sleep advances the fake time by the requested duration and returns at once,
// recording the duration so callers can assert on backoff and pacing.
// Tickers fire only when Advance (or Sleep) moves time past their next deadline.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	tickers []*fakeTicker
}

// NewFake returns a Fake starting at now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// Sleep records d and advances the fake time by it.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()

	f.Advance(d)
	return nil
}

// Sleeps returns every duration passed to Sleep, in call order.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// NewTicker returns a ticker driven by Advance.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTicker{
		c:        make(chan time.Time, 1),
		interval: d,
		next:     f.now.Add(d),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves the fake time forward and fires due tickers.
//
// A ticker channel holds one pending tick; extra ticks are dropped the same
// way time.Ticker drops them for slow receivers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	tickers := append([]*fakeTicker{}, f.tickers...)
	f.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

type fakeTicker struct {
	mu       sync.Mutex
	c        chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.interval <= 0 || now.Before(t.next) {
		return
	}

	for !now.Before(t.next) {
		t.next = t.next.Add(t.interval)
	}

	select {
	case t.c <- now:
	default:
	}
}
