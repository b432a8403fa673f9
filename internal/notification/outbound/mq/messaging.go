package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

// PublishDeliveryFailed is keyed by delivery so every message about one
// delivery lands on the same partition.
func (m *Messaging) PublishDeliveryFailed(ctx context.Context, f entity.DeliveryFailure) error {
	ctx, span := m.ins.Tracer("notification.outbound.mq").Start(ctx, "PublishDeliveryFailed")
	defer span.End()

	body, err := json.Marshal(event.NotificationDeliveryFailedMessage{
		DeliveryID:       f.DeliveryID,
		UserID:           f.UserID,
		NotificationType: f.NotificationType.String(),
		Channel:          f.Channel,
		Attempt:          f.Attempt,
		Final:            f.Final,
		Error:            f.Error,
		TicketID:         f.TicketID,
		FailedAt:         f.FailedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, event.NotificationDeliveryFailedDestination, messaging.OutgoingMessage{
		Key:  strconv.FormatInt(f.DeliveryID, 10),
		Body: body,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
