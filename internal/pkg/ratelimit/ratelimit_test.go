package ratelimit_test

import (
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sendRule = ratelimit.Rule{Name: "send", Limit: 10, Window: time.Minute}

func TestLimiter_EleventhRequestRejected(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	l := ratelimit.New(fc)
	key := sendRule.Key("POST /api/v1/notifications/send", "user-1")

	for i := range 10 {
		res := l.Allow(key, sendRule)
		require.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 9-i, res.Remaining)
	}

	fc.Advance(59 * time.Second)
	res := l.Allow(key, sendRule)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Second, res.RetryAfter())
	assert.Equal(t, int64(1), l.Rejected())

	fc.Advance(time.Second)
	res = l.Allow(key, sendRule)
	assert.True(t, res.Allowed, "first request of a new window")
	assert.Equal(t, 9, res.Remaining)
	assert.Zero(t, res.RetryAfter())
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Unix(0, 0))
	l := ratelimit.New(fc)
	bulk := ratelimit.Rule{Name: "send_bulk", Limit: 3, Window: 5 * time.Minute}

	for range 3 {
		require.True(t, l.Allow(bulk.Key("/x", "a"), bulk).Allowed)
	}
	assert.False(t, l.Allow(bulk.Key("/x", "a"), bulk).Allowed)
	assert.True(t, l.Allow(bulk.Key("/x", "b"), bulk).Allowed)
	assert.True(t, l.Allow(bulk.Key("/y", "a"), bulk).Allowed)
	assert.True(t, l.Allow(sendRule.Key("/x", "a"), sendRule).Allowed)
	assert.Equal(t, 4, l.Len())
}

func TestLimiter_Undo(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Unix(0, 0))
	l := ratelimit.New(fc)
	read := ratelimit.Rule{Name: "read", Limit: 1, Window: time.Minute, SkipSuccessful: true}
	key := read.Key("GET /api/v1/notifications/in-app", "10.0.0.1")

	require.True(t, l.Allow(key, read).Allowed)
	l.Undo(key)
	assert.True(t, l.Allow(key, read).Allowed)
	assert.False(t, l.Allow(key, read).Allowed)

	l.Undo("unknown")
}

func TestLimiter_Sweep(t *testing.T) {
	t.Parallel()

	fc := clock.NewFake(time.Unix(0, 0))
	l := ratelimit.New(fc)
	device := ratelimit.Rule{Name: "device_register", Limit: 5, Window: time.Hour}

	l.Allow(sendRule.Key("/x", "a"), sendRule)
	l.Allow(device.Key("/x", "a"), device)
	require.Equal(t, 2, l.Len())

	fc.Advance(time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	fc.Advance(time.Hour)
	assert.Equal(t, 1, l.Sweep())
	assert.Zero(t, l.Len())
}
