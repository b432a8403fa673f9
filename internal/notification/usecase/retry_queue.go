package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"go.uber.org/atomic"
)

// RetryQueue holds failed deliveries until their next retry is due.
// It lives in memory only; pending items are lost on restart.
type RetryQueue struct {
	mu    sync.Mutex
	items map[string]entity.RetryItem

	enqueued atomic.Int64
	dropped  atomic.Int64
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{items: make(map[string]entity.RetryItem)}
}

// Enqueue adds item, replacing any item with the same ID.
func (q *RetryQueue) Enqueue(item entity.RetryItem) {
	q.mu.Lock()
	q.items[item.ID] = item
	q.mu.Unlock()

	q.enqueued.Inc()
}

// DrainDue removes and returns the items due at now, oldest first.
func (q *RetryQueue) DrainDue(now time.Time) []entity.RetryItem {
	q.mu.Lock()
	var due []entity.RetryItem
	for id, item := range q.items {
		if !item.NextRetryAt.After(now) {
			due = append(due, item)
			delete(q.items, id)
		}
	}
	q.mu.Unlock()

	slices.SortFunc(due, func(a, b entity.RetryItem) int {
		if c := a.NextRetryAt.Compare(b.NextRetryAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return due
}

func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Snapshot returns a copy of the pending items ordered by next retry time.
func (q *RetryQueue) Snapshot() []entity.RetryItem {
	q.mu.Lock()
	out := make([]entity.RetryItem, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, item)
	}
	q.mu.Unlock()

	slices.SortFunc(out, func(a, b entity.RetryItem) int {
		return a.NextRetryAt.Compare(b.NextRetryAt)
	})
	return out
}

// Enqueued is the number of items ever enqueued.
func (q *RetryQueue) Enqueued() int64 { return q.enqueued.Load() }

// Dropped is the number of items that ran out of retries.
func (q *RetryQueue) Dropped() int64 { return q.dropped.Load() }

// ProcessRetryQueue makes one attempt for every due item. Items that fail
// again are re-enqueued until their type's retry budget is spent.
func (s *Usecase) ProcessRetryQueue(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "ProcessRetryQueue")
	defer span.End()

	due := s.retryQueue.DrainDue(s.clock.Now())
	if len(due) == 0 {
		return nil
	}

	var delivered, failed int
	for i, item := range due {
		if err := ctx.Err(); err != nil {
			for _, rest := range due[i:] {
				s.retryQueue.Enqueue(rest)
			}
			return err
		}

		if s.retryOnce(ctx, item) {
			delivered++
		} else {
			failed++
		}
	}

	slog.InfoContext(ctx, "retry queue processed",
		"due", len(due),
		"delivered", delivered,
		"failed", failed,
		"pending", s.retryQueue.Len(),
	)

	return nil
}

// retryOnce makes deferred attempt item.Attempt and reports whether it delivered.
func (s *Usecase) retryOnce(ctx context.Context, item entity.RetryItem) bool {
	sender, ok := s.senders[item.Channel]
	if !ok {
		slog.WarnContext(ctx, "retry item has no sender, dropping", "delivery_id", item.DeliveryID, "channel", item.Channel.String())
		s.retryQueue.dropped.Inc()
		return false
	}

	err := sender.Send(ctx, item.UserID, item.Payload)
	if err == nil {
		note := fmt.Sprintf("delivered on retry attempt %d", item.Attempt)
		s.logDelivery(ctx, entity.DeliveryLogEntry{
			DeliveryID:       item.DeliveryID,
			Attempt:          item.Attempt,
			UserID:           item.UserID,
			NotificationType: item.NotificationType,
			Channel:          item.Channel,
			Status:           entity.DeliveryStatusDelivered,
			Note:             &note,
		})
		return true
	}

	if errors.Is(err, entity.ErrNoRecipientAddress) {
		// the address went away since the first attempt; nothing left to retry
		note := "recipient address removed before retry"
		errMsg := err.Error()
		s.logDelivery(ctx, entity.DeliveryLogEntry{
			DeliveryID:       item.DeliveryID,
			Attempt:          item.Attempt,
			UserID:           item.UserID,
			NotificationType: item.NotificationType,
			Channel:          item.Channel,
			Status:           entity.DeliveryStatusFailed,
			ErrorMessage:     &errMsg,
			Note:             &note,
		})
		s.retryQueue.dropped.Inc()
		return false
	}

	policy := s.policies.For(item.NotificationType)
	final := item.Attempt >= policy.MaxRetries
	errMsg := err.Error()

	entry := entity.DeliveryLogEntry{
		DeliveryID:       item.DeliveryID,
		Attempt:          item.Attempt,
		UserID:           item.UserID,
		NotificationType: item.NotificationType,
		Channel:          item.Channel,
		Status:           entity.DeliveryStatusFailed,
		WillRetry:        !final,
		ErrorMessage:     &errMsg,
	}
	if final {
		note := fmt.Sprintf("retry budget exhausted after %d attempts", item.Attempt)
		entry.Note = &note
	}
	s.logDelivery(ctx, entry)

	now := s.clock.Now()
	if !final {
		next := item
		next.Attempt++
		next.ID = retryItemID(item.DeliveryID, next.Attempt)
		next.NextRetryAt = now.Add(policy.Delay(item.Attempt))
		s.retryQueue.Enqueue(next)
		return false
	}

	slog.WarnContext(ctx, "retry budget exhausted",
		"delivery_id", item.DeliveryID,
		"user_id", item.UserID,
		"channel", item.Channel.String(),
		"attempt", item.Attempt,
		"error", err,
	)
	s.retryQueue.dropped.Inc()

	s.publishFailure(ctx, entity.DeliveryFailure{
		DeliveryID:       item.DeliveryID,
		UserID:           item.UserID,
		NotificationType: item.NotificationType,
		Channel:          item.Channel.String(),
		Attempt:          item.Attempt,
		Final:            true,
		Error:            errMsg,
		TicketID:         item.Payload.TicketID,
		FailedAt:         now,
	})

	return false
}
