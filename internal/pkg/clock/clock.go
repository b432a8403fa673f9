package clock

import (
	"context"
	"time"
)

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// Ticker delivers ticks on C until Stop is called.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is a Clocker that can also wait and tick.
type Clock interface {
	Clocker

	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
	// NewTicker returns a ticker firing every d.
	NewTicker(d time.Duration) Ticker
}

// TimeClocker is the production clock implementation backed by the time package.
type TimeClocker struct{}

// New returns a TimeClocker that reads the current system time.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current system time.
func (*TimeClocker) Now() time.Time {
	return time.Now()
}

// Sleep waits for d using a timer so it can be interrupted by ctx.
func (*TimeClocker) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewTicker wraps time.NewTicker.
func (*TimeClocker) NewTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

type timeTicker struct {
	t *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }

func (t *timeTicker) Stop() { t.t.Stop() }
