package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/gonotif/internal/pkg/config"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/shandysiswandi/gonotif/internal/shared/event"
)

type consumer struct {
	topic   string
	group   string
	handler messaging.Handler
}

func consumers(h *MQHandler) []consumer {
	return []consumer{
		{topic: event.NotificationRequestedDestination, group: event.ConsumerGroupNotification, handler: h.NotificationRequested},
		{topic: event.TicketEventsDestination, group: event.ConsumerGroupNotification, handler: h.TicketEvents},
		{topic: event.QuoteEventsDestination, group: event.ConsumerGroupNotification, handler: h.QuoteEvents},
		{topic: event.OneTimeCodeRequestedDestination, group: event.ConsumerGroupNotification, handler: h.OneTimeCodeRequested},
		{topic: event.MediaEventsDestination, group: event.ConsumerGroupNotification, handler: h.MediaEvents},
		{topic: event.MessageEventsDestination, group: event.ConsumerGroupNotification, handler: h.MessageEvents},
		{topic: event.UserRegistrationDestination, group: event.UserRegistrationDestinationConsumerNotification, handler: h.UserRegistration},
	}
}

// RegisterMQConsumer starts one consumer per topic listed in
// modules.notification.consumer_topics, or every topic when the list is empty.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	broker messaging.Consumer,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	var enabled []string
	concurrency := 10
	if cfg != nil {
		enabled = cfg.GetArray("modules.notification.consumer_topics")
		if v := cfg.GetInt("modules.notification.consumer_concurrency"); v > 0 {
			concurrency = v
		}
	}

	for _, c := range consumers(h) {
		if len(enabled) > 0 && !slices.Contains(enabled, c.topic) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "topic", c.topic, "group", c.group)
			return broker.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(c.group),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
		if !ok {
			slog.ErrorContext(ctx, "failed to start consumer", "topic", c.topic)
		}
	}
}
