package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/cache"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/testcontainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PreferencesRoundTrip(t *testing.T) {
	client := testcontainer.Redis(t)
	c := cache.New(client, instrument.NewNoop())
	ctx := context.Background()

	_, err := c.GetPreferences(ctx, "u-1")
	require.ErrorIs(t, err, goerror.ErrNotFound)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	want := entity.DefaultPreferences("u-1", now).Set(entity.ChannelPush, false)
	require.NoError(t, c.SetPreferences(ctx, want, time.Minute))

	got, err := c.GetPreferences(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.EnabledChannels(), got.EnabledChannels())
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	ttl, err := client.TTL(ctx, "notification:preferences:u-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.DeletePreferences(ctx, "u-1"))
	_, err = c.GetPreferences(ctx, "u-1")
	require.ErrorIs(t, err, goerror.ErrNotFound)
}
