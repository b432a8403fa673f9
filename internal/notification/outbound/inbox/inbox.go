// Package inbox is the in-app channel: notifications are stored per user and
// pushed to open streams.
package inbox

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type store interface {
	CreateInboxItem(ctx context.Context, it entity.InboxItem) error
}

type InApp struct {
	store store
	hub   *Hub
	uid   uid.NumberID
	clock clock.Clocker
	ins   instrument.Instrumentation
}

func New(st store, hub *Hub, id uid.NumberID, clk clock.Clocker, ins instrument.Instrumentation) *InApp {
	return &InApp{store: st, hub: hub, uid: id, clock: clk, ins: ins}
}

func (a *InApp) Send(ctx context.Context, recipientID string, n entity.NotificationPayload) error {
	ctx, span := a.ins.Tracer("notification.outbound.inbox").Start(ctx, "Send")
	defer span.End()

	it := entity.InboxItem{
		ID:        a.uid.Generate(),
		UserID:    recipientID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		TicketID:  n.TicketID,
		CreatedAt: a.clock.Now(),
	}

	if err := a.store.CreateInboxItem(ctx, it); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("in-app: store item: %w", err)
	}

	span.SetAttributes(attribute.Int("inbox.live_subscribers", a.hub.Publish(it)))
	return nil
}
