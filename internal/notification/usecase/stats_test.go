package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDeliveryStats(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.db.counts = entity.DeliveryCounts{Total: 10, Delivered: 7, Failed: 2}

	first, err := h.uc.GetDeliveryStats(context.Background(), StatsInput{Window: time.Hour, UserID: "u-1"})
	require.NoError(t, err)
	second, err := h.uc.GetDeliveryStats(context.Background(), StatsInput{Window: time.Hour, UserID: "u-1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Total, first.Delivered+first.Failed+first.Pending)
	assert.EqualValues(t, 1, first.Pending)
	assert.InDelta(t, 0.7, first.SuccessRate, 1e-9)
	assert.Equal(t, entity.StatsFilter{Since: t0.Add(-time.Hour), UserID: "u-1"}, h.db.lastStat)
}

func TestGetDeliveryStats_Window(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		window    time.Duration
		wantSince time.Time
		wantErr   bool
	}{
		{name: "default", window: 0, wantSince: t0.Add(-24 * time.Hour)},
		{name: "custom", window: 7 * 24 * time.Hour, wantSince: t0.Add(-7 * 24 * time.Hour)},
		{name: "negative", window: -time.Hour, wantErr: true},
		{name: "too wide", window: 91 * 24 * time.Hour, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			_, err := h.uc.GetDeliveryStats(context.Background(), StatsInput{Window: tt.window})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSince, h.db.lastStat.Since)
		})
	}
}

func TestGetChannelStats_FillsMissingChannels(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.db.grouped = []entity.DeliveryCounts{{Key: "email", Total: 4, Delivered: 4}}

	got, err := h.uc.GetChannelStats(context.Background(), StatsInput{})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "push", got[0].Key)
	assert.Zero(t, got[0].Total)
	assert.Equal(t, "email", got[1].Key)
	assert.InDelta(t, 1.0, got[1].SuccessRate, 1e-9)
	assert.Equal(t, "in_app", got[2].Key)
	for _, st := range got {
		assert.Equal(t, st.Total, st.Delivered+st.Failed+st.Pending)
	}
}

func TestGetNotificationTypeStats(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.db.grouped = []entity.DeliveryCounts{
		{Key: "ticket_created", Total: 3, Delivered: 1, Failed: 1},
		{Key: "one_time_code", Total: 2, Delivered: 2},
	}

	got, err := h.uc.GetNotificationTypeStats(context.Background(), StatsInput{})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0].Pending)
	assert.Equal(t, "one_time_code", got[1].Key)
}

func TestGetFailedDeliveries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      FailedDeliveriesInput
		want    entity.FailedFilter
		wantErr bool
	}{
		{name: "defaults", in: FailedDeliveriesInput{}, want: entity.FailedFilter{Limit: 20}},
		{
			name: "filters",
			in:   FailedDeliveriesInput{Limit: 5, Offset: 10, Type: "ticket_created", Channel: "push"},
			want: entity.FailedFilter{Limit: 5, Offset: 10, Type: entity.TypeTicketCreated, Channel: entity.ChannelPush},
		},
		{name: "limit too high", in: FailedDeliveriesInput{Limit: 101}, wantErr: true},
		{name: "unknown channel", in: FailedDeliveriesInput{Channel: "sms"}, wantErr: true},
		{name: "unknown type", in: FailedDeliveriesInput{Type: "party_invite"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			_, err := h.uc.GetFailedDeliveries(context.Background(), tt.in)
			if tt.wantErr {
				var gerr *goerror.Error
				require.ErrorAs(t, err, &gerr)
				assert.Equal(t, goerror.CodeInvalidInput, gerr.Code())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.db.lastFail)
		})
	}
}
