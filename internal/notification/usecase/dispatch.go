package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/idempotency"
	"github.com/shandysiswandi/gonotif/internal/pkg/validator"
)

type SendNotificationInput struct {
	Payload entity.NotificationPayload
	// Strict turns a channel that failed every inline attempt into an error.
	Strict bool
}

// SendNotification validates the payload and delivers it on every channel the
// recipient has enabled. Per-channel failures are reported in the outcomes and
// the delivery log; they are returned as an error only in strict mode.
func (s *Usecase) SendNotification(ctx context.Context, in SendNotificationInput) ([]entity.Outcome, error) {
	ctx, span := s.startSpan(ctx, "SendNotification")
	defer span.End()

	if err := s.checkPayload(in.Payload); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	outcomes := s.dispatch(ctx, in.Payload.Clone())

	if in.Strict {
		var failed []string
		for _, o := range outcomes {
			if o.Status == entity.OutcomeFailed {
				failed = append(failed, o.Channel.String())
			}
		}
		if len(failed) > 0 {
			return outcomes, goerror.NewUpstream("delivery failed on channel(s): "+strings.Join(failed, ", "), nil)
		}
	}

	return outcomes, nil
}

type AcceptNotificationInput struct {
	Payload        entity.NotificationPayload
	IdempotencyKey string `validate:"omitempty,max=128"`
}

type AcceptResult struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

// AcceptNotification validates synchronously and delivers in the background.
func (s *Usecase) AcceptNotification(ctx context.Context, in AcceptNotificationInput) (AcceptResult, error) {
	ctx, span := s.startSpan(ctx, "AcceptNotification")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return AcceptResult{}, goerror.NewInvalidInput(err)
	}
	if err := s.checkPayload(in.Payload); err != nil {
		return AcceptResult{}, goerror.NewInvalidInput(err)
	}

	key := ""
	if in.IdempotencyKey != "" && s.idem != nil {
		key = "notification:send:" + in.IdempotencyKey

		state, err := s.idem.Acquire(ctx, key, s.opts.idempotencyLock)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "failed to acquire idempotency key, dispatching anyway", "idempotency_key", in.IdempotencyKey, "error", err)
			key = ""
		case state == idempotency.StateInProgress:
			return AcceptResult{}, goerror.NewBusiness("notification with this idempotency key is in progress", goerror.CodeConflict)
		case state == idempotency.StateCompleted:
			return AcceptResult{Accepted: true, Duplicate: true}, nil
		case state == idempotency.StateFailed:
			return AcceptResult{}, goerror.NewBusiness("notification with this idempotency key failed, use a new key", goerror.CodeConflict)
		}
	}

	payload := in.Payload.Clone()
	started := s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		_, err := s.SendNotification(ctx, SendNotificationInput{Payload: payload})
		s.finishIdempotency(ctx, key, err)
		return err
	})
	if !started {
		// short ttl so the caller can retry the same key once load drops
		if key != "" {
			if err := s.idem.MarkFailed(ctx, key, s.opts.idempotencyLock); err != nil {
				slog.ErrorContext(ctx, "failed to mark idempotency key", "key", key, "error", err)
			}
		}
		return AcceptResult{}, goerror.NewBusiness("server is busy, try again later", goerror.CodeTooManyRequest)
	}

	return AcceptResult{Accepted: true}, nil
}

func (s *Usecase) finishIdempotency(ctx context.Context, key string, err error) {
	if key == "" {
		return
	}

	mark := s.idem.MarkCompleted
	if err != nil {
		mark = s.idem.MarkFailed
	}
	if mErr := mark(ctx, key, s.opts.idempotencyTTL); mErr != nil {
		slog.ErrorContext(ctx, "failed to mark idempotency key", "key", key, "error", mErr)
	}
}

// checkPayload returns a validator.V10ValidationError describing the first
// problems found in p, or nil.
func (s *Usecase) checkPayload(p entity.NotificationPayload) error {
	if err := s.validator.Validate(p); err != nil {
		return err
	}
	if !p.Type.IsValid() {
		return validator.V10ValidationError{"type": "type must be a supported notification type"}
	}
	return nil
}

// dispatch fans p out to every enabled channel concurrently. Outcomes are in
// channel order.
func (s *Usecase) dispatch(ctx context.Context, p entity.NotificationPayload) []entity.Outcome {
	prefs := s.resolvePreferences(ctx, p.RecipientID)

	channels := make([]entity.Channel, 0, len(entity.Channels))
	for _, ch := range prefs.EnabledChannels() {
		if _, ok := s.senders[ch]; ok {
			channels = append(channels, ch)
		}
	}

	outcomes := make([]entity.Outcome, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Go(func() {
			outcomes[i] = s.sendWithRetry(ctx, ch, p)
		})
	}
	wg.Wait()

	return outcomes
}

// sendWithRetry makes up to inlineMaxAttempts sequential attempts on one
// channel, sleeping an exponential backoff between them.
func (s *Usecase) sendWithRetry(ctx context.Context, ch entity.Channel, p entity.NotificationPayload) entity.Outcome {
	out := entity.Outcome{Channel: ch}
	sender := s.senders[ch]
	deliveryID := s.uid.Generate()
	backoff := retry.NewExponential(s.opts.inlineBaseDelay)

	var lastErr error
	for attempt := 1; attempt <= s.opts.inlineMaxAttempts; attempt++ {
		out.Attempts = attempt

		err := sender.Send(ctx, p.RecipientID, p)
		if err == nil {
			s.logDelivery(ctx, entity.DeliveryLogEntry{
				DeliveryID:       deliveryID,
				UserID:           p.RecipientID,
				NotificationType: p.Type,
				Channel:          ch,
				Status:           entity.DeliveryStatusDelivered,
			})
			out.Status = entity.OutcomeDelivered
			return out
		}

		if errors.Is(err, entity.ErrNoRecipientAddress) {
			slog.InfoContext(ctx, "notification channel skipped, no recipient address", "user_id", p.RecipientID, "channel", ch.String())
			out.Status = entity.OutcomeSkipped
			return out
		}

		lastErr = err
		slog.WarnContext(ctx, "failed to send notification", "user_id", p.RecipientID, "channel", ch.String(), "attempt", attempt, "error", err)

		if attempt == s.opts.inlineMaxAttempts {
			break
		}

		delay, _ := backoff.Next()
		if err := s.clock.Sleep(ctx, delay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	policy := s.policies.For(p.Type)
	queued := policy.MaxRetries > 0

	errMsg := lastErr.Error()
	s.logDelivery(ctx, entity.DeliveryLogEntry{
		DeliveryID:       deliveryID,
		UserID:           p.RecipientID,
		NotificationType: p.Type,
		Channel:          ch,
		Status:           entity.DeliveryStatusFailed,
		WillRetry:        queued,
		ErrorMessage:     &errMsg,
	})

	now := s.clock.Now()
	if queued {
		s.retryQueue.Enqueue(entity.RetryItem{
			ID:               retryItemID(deliveryID, 1),
			DeliveryID:       deliveryID,
			UserID:           p.RecipientID,
			NotificationType: p.Type,
			Channel:          ch,
			Attempt:          1,
			NextRetryAt:      now.Add(policy.Delay(0)),
			Payload:          p.Clone(),
		})
	}

	s.publishFailure(ctx, entity.DeliveryFailure{
		DeliveryID:       deliveryID,
		UserID:           p.RecipientID,
		NotificationType: p.Type,
		Channel:          ch.String(),
		Attempt:          0,
		Final:            !queued,
		Error:            errMsg,
		TicketID:         p.TicketID,
		FailedAt:         now,
	})

	out.Status = entity.OutcomeFailed
	out.Error = errMsg
	out.Queued = queued
	return out
}

// logDelivery appends e to the delivery log. The log is best effort: a write
// failure is logged and does not change the outcome.
func (s *Usecase) logDelivery(ctx context.Context, e entity.DeliveryLogEntry) {
	e.ID = s.uid.Generate()
	e.CreatedAt = s.clock.Now()

	s.countDelivery(ctx, e.Channel, e.Status)

	if err := s.repoDB.CreateDeliveryLog(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to repo create delivery log",
			"delivery_id", e.DeliveryID,
			"user_id", e.UserID,
			"channel", e.Channel.String(),
			"status", e.Status.String(),
			"error", err,
		)
	}
}

func (s *Usecase) publishFailure(ctx context.Context, f entity.DeliveryFailure) {
	if s.repoMQ == nil {
		return
	}
	if err := s.repoMQ.PublishDeliveryFailed(ctx, f); err != nil {
		slog.ErrorContext(ctx, "failed to publish delivery failed message", "delivery_id", f.DeliveryID, "channel", f.Channel, "error", err)
	}
}

func retryItemID(deliveryID int64, attempt int) string {
	return strconv.FormatInt(deliveryID, 10) + ":" + strconv.Itoa(attempt)
}
