// Package push delivers notifications to mobile and web devices through
// Firebase Cloud Messaging.
package push

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/samber/lo"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// maxTokens is the FCM multicast limit. Larger device lists are sent in batches.
const maxTokens = 500

type fcmClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type tokenStore interface {
	ListDeviceTokens(ctx context.Context, userID string) ([]string, error)
	RemoveDeviceTokens(ctx context.Context, tokens []string) (int64, error)
}

// Push sends a notification to every device of the recipient, one multicast
// per batch of at most maxTokens.
type Push struct {
	client  fcmClient
	store   tokenStore
	limiter *rate.Limiter
	ins     instrument.Instrumentation

	// isStale reports provider errors that mean the token is gone for good.
	isStale func(error) bool
}

// New builds a Push sender. A nil limiter disables throttling.
func New(client fcmClient, store tokenStore, limiter *rate.Limiter, ins instrument.Instrumentation) *Push {
	return &Push{
		client:  client,
		store:   store,
		limiter: limiter,
		ins:     ins,
		isStale: messaging.IsUnregistered,
	}
}

func (p *Push) Send(ctx context.Context, recipientID string, n entity.NotificationPayload) (err error) {
	ctx, span := p.ins.Tracer("notification.outbound.push").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tokens, err := p.store.ListDeviceTokens(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("push: list device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return entity.ErrNoRecipientAddress
	}
	batches := lo.Chunk(tokens, maxTokens)
	span.SetAttributes(attribute.Int("push.tokens", len(tokens)), attribute.Int("push.batches", len(batches)))

	var (
		stale     []string
		firstErr  error
		succeeded int
		failed    int
	)
	for _, batch := range batches {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("push: throttle: %w", err)
			}
		}

		resp, err := p.client.SendEachForMulticast(ctx, message(batch, n))
		if err != nil {
			failed += len(batch)
			if firstErr == nil {
				firstErr = fmt.Errorf("send multicast: %w", err)
			}
			continue
		}

		succeeded += resp.SuccessCount
		failed += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Success || i >= len(batch) {
				continue
			}
			if p.isStale(r.Error) {
				stale = append(stale, batch[i])
				continue
			}
			if firstErr == nil {
				firstErr = r.Error
			}
		}
	}

	if len(stale) > 0 {
		if removed, err := p.store.RemoveDeviceTokens(ctx, stale); err != nil {
			slog.WarnContext(ctx, "failed to remove unregistered device tokens", "user_id", recipientID, "tokens", len(stale), "error", err)
		} else {
			slog.InfoContext(ctx, "removed unregistered device tokens", "user_id", recipientID, "removed", removed)
		}
	}

	switch {
	case succeeded > 0:
		return nil
	case firstErr == nil:
		// every token was unregistered
		return entity.ErrNoRecipientAddress
	default:
		return fmt.Errorf("push: %d of %d tokens failed: %w", failed, len(tokens), firstErr)
	}
}

func message(tokens []string, n entity.NotificationPayload) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data(n),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10", "apns-push-type": "alert"},
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
}

// data flattens the payload into FCM string data.
func data(n entity.NotificationPayload) map[string]string {
	out := valueobject.JSONMap(n.Data).Strings()
	out["type"] = n.Type.String()
	if n.TicketID != "" {
		out["ticket_id"] = n.TicketID
	}
	return out
}
