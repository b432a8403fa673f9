// Package ratelimit implements per-process fixed-window admission control.
//
// Every key gets a counter and a window end. The first request after the
// window elapsed starts a fresh window. Requests beyond the rule limit are
// rejected until the window resets. Records are kept in one map guarded by a
// mutex; Sweep evicts elapsed windows and is meant to run periodically.
package ratelimit

import (
	"sync"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"go.uber.org/atomic"
)

// Rule is a request budget per window.
type Rule struct {
	// Name identifies the rule in config and logs.
	Name string
	// Limit is the number of requests admitted per window.
	Limit int
	// Window is the length of a fixed window.
	Window time.Duration
	// SkipSuccessful makes successful requests give their slot back.
	SkipSuccessful bool
}

// Key builds the counter key for identity calling endpoint under the rule.
// Endpoints sharing a rule keep separate counters.
func (r Rule) Key(endpoint, identity string) string {
	return r.Name + ":" + endpoint + ":" + identity
}

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time

	now time.Time
}

// RetryAfter returns how long to wait before the next request can be admitted.
// It is 0 for admitted requests.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}

	d := r.ResetAt.Sub(r.now)
	if d < 0 {
		return 0
	}
	return d
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter.
type Limiter struct {
	clock clock.Clocker

	mu      sync.Mutex
	records map[string]*record

	rejected atomic.Int64
}

// New returns an empty Limiter reading time from c.
func New(c clock.Clocker) *Limiter {
	return &Limiter{
		clock:   c,
		records: make(map[string]*record),
	}
}

// Allow counts one request for key and reports whether it fits in rule.
func (l *Limiter) Allow(key string, rule Rule) Result {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || !now.Before(rec.resetAt) {
		rec = &record{resetAt: now.Add(rule.Window)}
		l.records[key] = rec
	}
	rec.count++

	res := Result{
		Allowed: rec.count <= rule.Limit,
		Limit:   rule.Limit,
		ResetAt: rec.resetAt,
		now:     now,
	}
	if remaining := rule.Limit - rec.count; remaining > 0 {
		res.Remaining = remaining
	}
	if !res.Allowed {
		l.rejected.Inc()
	}

	return res
}

// Undo gives back one slot of the current window for key.
func (l *Limiter) Undo(key string) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[key]; ok && now.Before(rec.resetAt) && rec.count > 0 {
		rec.count--
	}
}

// Sweep evicts records whose window has elapsed and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, rec := range l.records {
		if !now.Before(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// Rejected returns how many requests were rejected since start.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}
