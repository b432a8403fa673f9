package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/usecase"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/messaging"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/shandysiswandi/gonotif/internal/shared/event"
)

// MQHandler turns broker messages into notifications.
//
// Malformed or invalid messages are logged and acknowledged since redelivery
// cannot fix them. Other errors are returned so the broker redelivers.
type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if instrument.GetCorrelationID(ctx) != "" {
		return ctx
	}
	if cID := msg.Header(messaging.HeaderCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// notify decodes msg into dst and hands the event built from it to the usecase.
func (h *MQHandler) notify(ctx context.Context, name string, msg messaging.Message, dst any, build func() entity.Event) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, name)
	defer span.End()

	slog.InfoContext(ctx, "consume: "+msg.Topic, "attempt", msg.Attempt, "msg_key", msg.Key)

	if err := json.Unmarshal(msg.Body, dst); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body", "topic", msg.Topic, "msg_body", string(msg.Body), "error", err)
		return nil
	}

	outcomes, err := h.uc.Notify(ctx, build())
	return h.result(ctx, msg, len(outcomes), err)
}

func (h *MQHandler) result(ctx context.Context, msg messaging.Message, outcomes int, err error) error {
	if err == nil {
		slog.DebugContext(ctx, "message consumed", "topic", msg.Topic, "outcomes", outcomes)
		return nil
	}

	var gerr *goerror.Error
	if errors.As(err, &gerr) && gerr.Type() == goerror.TypeValidation {
		slog.WarnContext(ctx, "dropped invalid message", "topic", msg.Topic, "msg_body", string(msg.Body), "error", err)
		return nil
	}

	slog.ErrorContext(ctx, "failed to consume message", "topic", msg.Topic, "attempt", msg.Attempt, "error", err)
	return err
}

func (h *MQHandler) NotificationRequested(ctx context.Context, msg messaging.Message) error {
	var m event.NotificationRequestedMessage
	return h.notify(ctx, "NotificationRequested", msg, &m, func() entity.Event {
		return entity.PayloadEvent{Payload: entity.NotificationPayload{
			RecipientID: m.RecipientID,
			Type:        entity.NotificationType(m.Type),
			Title:       m.Title,
			Message:     m.Message,
			Data:        m.Data,
			TicketID:    m.TicketID,
		}}
	})
}

func (h *MQHandler) TicketEvents(ctx context.Context, msg messaging.Message) error {
	var m event.TicketEventMessage
	return h.notify(ctx, "TicketEvents", msg, &m, func() entity.Event {
		return entity.TicketEvent{
			Type:         entity.NotificationType(m.Type),
			TicketID:     m.TicketID,
			Subject:      m.Subject,
			ActorID:      m.ActorID,
			ActorName:    m.ActorName,
			RecipientIDs: m.RecipientIDs,
			Status:       m.Status,
			Comment:      m.Comment,
		}
	})
}

func (h *MQHandler) QuoteEvents(ctx context.Context, msg messaging.Message) error {
	var m event.QuoteEventMessage
	return h.notify(ctx, "QuoteEvents", msg, &m, func() entity.Event {
		return entity.QuoteEvent{
			Type:         entity.NotificationType(m.Type),
			QuoteID:      m.QuoteID,
			TicketID:     m.TicketID,
			ActorID:      m.ActorID,
			RecipientIDs: m.RecipientIDs,
			Amount:       m.Amount,
			Currency:     m.Currency,
		}
	})
}

func (h *MQHandler) OneTimeCodeRequested(ctx context.Context, msg messaging.Message) error {
	var m event.OneTimeCodeMessage
	return h.notify(ctx, "OneTimeCodeRequested", msg, &m, func() entity.Event {
		return entity.OneTimeCodeEvent{
			UserID:           m.UserID,
			Code:             m.Code,
			Purpose:          m.Purpose,
			ExpiresInMinutes: m.ExpiresInMinutes,
		}
	})
}

func (h *MQHandler) MediaEvents(ctx context.Context, msg messaging.Message) error {
	var m event.MediaEventMessage
	return h.notify(ctx, "MediaEvents", msg, &m, func() entity.Event {
		return entity.MediaEvent{
			MediaID:      m.MediaID,
			TicketID:     m.TicketID,
			FileName:     m.FileName,
			UploaderID:   m.UploaderID,
			UploaderName: m.UploaderName,
			RecipientIDs: m.RecipientIDs,
		}
	})
}

func (h *MQHandler) MessageEvents(ctx context.Context, msg messaging.Message) error {
	var m event.MessageEventMessage
	return h.notify(ctx, "MessageEvents", msg, &m, func() entity.Event {
		return entity.MessageEvent{
			ConversationID: m.ConversationID,
			TicketID:       m.TicketID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderName,
			RecipientIDs:   m.RecipientIDs,
			Preview:        m.Body,
		}
	})
}

func (h *MQHandler) UserRegistration(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "UserRegistration")
	defer span.End()

	slog.InfoContext(ctx, "consume: "+msg.Topic, "attempt", msg.Attempt, "msg_key", msg.Key)

	var m event.UserRegistrationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body", "topic", msg.Topic, "msg_body", string(msg.Body), "error", err)
		return nil
	}

	userID := ""
	if m.UserID > 0 {
		userID = strconv.FormatInt(m.UserID, 10)
	}

	err := h.uc.ConsumeUserRegistration(ctx, usecase.UserRegisteredInput{
		UserID:   userID,
		Email:    m.Email,
		FullName: m.FullName,
	})
	return h.result(ctx, msg, 0, err)
}
