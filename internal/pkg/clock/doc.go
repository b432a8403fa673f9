// Package clock provides a small time abstraction.
//
// Production code should depend on Clocker (or Clock when it also needs to
// wait) instead of calling time.Now, time.Sleep or time.NewTicker directly.
// Tests swap in Fake, which only moves when Advance or Sleep is called, so
// backoff delays, pacing pauses and scheduler ticks can be asserted without
// waiting on the wall clock.
package clock
