package mq_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/mq"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliveryFailed(t *testing.T) {
	t.Parallel()

	broker := messaging.NewMemory()
	t.Cleanup(func() { _ = broker.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan messaging.Message, 1)
	go func() {
		_ = broker.Consume(ctx, event.NotificationDeliveryFailedDestination, func(_ context.Context, msg messaging.Message) error {
			got <- msg
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		return broker.Subscribers(event.NotificationDeliveryFailedDestination) == 1
	}, time.Second, 5*time.Millisecond)

	failedAt := time.Date(2025, 4, 4, 4, 4, 4, 0, time.UTC)
	pub := mq.NewMessaging(broker, instrument.NewNoop())
	err := pub.PublishDeliveryFailed(instrument.SetCorrelationID(ctx, "cid-1"), entity.DeliveryFailure{
		DeliveryID:       99,
		UserID:           "u-1",
		NotificationType: entity.TypeOneTimeCode,
		Channel:          "email",
		Final:            true,
		Error:            "smtp: 421",
		FailedAt:         failedAt,
	})
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.Equal(t, "99", msg.Key)
		assert.Equal(t, "cid-1", msg.Header(messaging.HeaderCorrelationID))

		var body event.NotificationDeliveryFailedMessage
		require.NoError(t, json.Unmarshal(msg.Body, &body))
		assert.Equal(t, "one_time_code", body.NotificationType)
		assert.True(t, body.Final)
		assert.True(t, failedAt.Equal(body.FailedAt))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}
