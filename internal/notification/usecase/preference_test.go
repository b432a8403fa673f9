package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPreferences_CreatesDefault(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	got, err := h.uc.GetPreferences(context.Background(), UserInput{UserID: "u-1"})
	require.NoError(t, err)

	assert.Equal(t, entity.DefaultPreferences("u-1", t0), got)
	assert.Contains(t, h.db.prefs, "u-1")
	assert.Contains(t, h.cache.prefs, "u-1")
}

func TestGetPreferences_CacheHit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	cached := entity.DefaultPreferences("u-1", t0).Set(entity.ChannelEmail, false)
	h.cache.prefs["u-1"] = cached
	h.db.prefErr = errors.New("store must not be read")

	got, err := h.uc.GetPreferences(context.Background(), UserInput{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func TestGetPreferences_FallsBackOnFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cache.getErr = errors.New("redis down")
	h.db.prefErr = errors.New("postgres down")

	got, err := h.uc.GetPreferences(context.Background(), UserInput{UserID: "u-1"})
	require.NoError(t, err)

	assert.True(t, got.PushEnabled)
	assert.True(t, got.EmailEnabled)
	assert.True(t, got.InAppEnabled)
	assert.NotContains(t, h.cache.prefs, "u-1")
}

func TestGetPreferences_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.uc.GetPreferences(context.Background(), UserInput{UserID: " "})
	require.Error(t, err)
}

func TestDisableThenEnableRestoresState(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	before, err := h.uc.GetPreferences(ctx, UserInput{UserID: "u-1"})
	require.NoError(t, err)

	disabled, err := h.uc.DisableChannel(ctx, ChannelInput{UserID: "u-1", Channel: "email"})
	require.NoError(t, err)
	assert.False(t, disabled.EmailEnabled)
	assert.NotContains(t, h.cache.prefs, "u-1")

	got, err := h.uc.GetPreferences(ctx, UserInput{UserID: "u-1"})
	require.NoError(t, err)
	assert.False(t, got.EmailEnabled)

	_, err = h.uc.EnableChannel(ctx, ChannelInput{UserID: "u-1", Channel: "email"})
	require.NoError(t, err)

	after, err := h.uc.GetPreferences(ctx, UserInput{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, before.EnabledChannels(), after.EnabledChannels())
	assert.Equal(t, 2, h.cache.deletes)
}

func TestSetChannel_RejectsUnknownChannel(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.uc.EnableChannel(context.Background(), ChannelInput{UserID: "u-1", Channel: "sms"})
	require.Error(t, err)
	assert.NotContains(t, h.db.prefs, "u-1")
}

func TestUpdatePreferences(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	yes, no := true, false

	got, err := h.uc.UpdatePreferences(context.Background(), UpdatePreferencesInput{
		UserID:       "u-1",
		PushEnabled:  &no,
		EmailEnabled: &yes,
		InAppEnabled: &no,
	})
	require.NoError(t, err)
	assert.Equal(t, []entity.Channel{entity.ChannelEmail}, got.EnabledChannels())

	_, err = h.uc.UpdatePreferences(context.Background(), UpdatePreferencesInput{UserID: "u-1", PushEnabled: &yes})
	require.Error(t, err)
}
