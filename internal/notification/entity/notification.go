package entity

import (
	"errors"
	"maps"
	"math"
	"time"
)

// ErrNoRecipientAddress is returned by a channel sender when the recipient has
// no address for that channel. It is a skip, not a failure.
var ErrNoRecipientAddress = errors.New("recipient has no address for channel")

// NotificationPayload is one logical notification. It is passed by value.
type NotificationPayload struct {
	RecipientID string           `json:"recipient_id" validate:"notblank"`
	Type        NotificationType `json:"type" validate:"required"`
	Title       string           `json:"title" validate:"notblank,max=255"`
	Message     string           `json:"message,omitempty" validate:"max=4000"`
	Data        map[string]any   `json:"data,omitempty"`
	TicketID    string           `json:"ticket_id,omitempty"`
}

// Clone returns a copy whose Data map is not shared with p.
func (p NotificationPayload) Clone() NotificationPayload {
	p.Data = maps.Clone(p.Data)
	return p
}

type NotificationPreferences struct {
	UserID       string
	PushEnabled  bool
	EmailEnabled bool
	InAppEnabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultPreferences returns the all-enabled preferences used for new users
// and whenever the store cannot be read.
func DefaultPreferences(userID string, now time.Time) NotificationPreferences {
	return NotificationPreferences{
		UserID:       userID,
		PushEnabled:  true,
		EmailEnabled: true,
		InAppEnabled: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (p NotificationPreferences) Enabled(ch Channel) bool {
	switch ch {
	case ChannelPush:
		return p.PushEnabled
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelInApp:
		return p.InAppEnabled
	default:
		return false
	}
}

// Set returns a copy of p with ch switched to enabled.
func (p NotificationPreferences) Set(ch Channel, enabled bool) NotificationPreferences {
	switch ch {
	case ChannelPush:
		p.PushEnabled = enabled
	case ChannelEmail:
		p.EmailEnabled = enabled
	case ChannelInApp:
		p.InAppEnabled = enabled
	}
	return p
}

// EnabledChannels returns the enabled channels in fan-out order.
func (p NotificationPreferences) EnabledChannels() []Channel {
	out := make([]Channel, 0, len(Channels))
	for _, ch := range Channels {
		if p.Enabled(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// DeliveryLogEntry is one logged attempt. Attempt 0 is the inline dispatch,
// N > 0 is deferred retry N. WillRetry marks a failure that is still queued.
type DeliveryLogEntry struct {
	ID               int64            `json:"id"`
	DeliveryID       int64            `json:"delivery_id"`
	Attempt          int              `json:"attempt"`
	UserID           string           `json:"user_id"`
	NotificationType NotificationType `json:"notification_type"`
	Channel          Channel          `json:"channel"`
	Status           DeliveryStatus   `json:"status"`
	WillRetry        bool             `json:"will_retry"`
	ErrorMessage     *string          `json:"error_message,omitempty"`
	Note             *string          `json:"note,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// RetryItem is a delivery waiting in the volatile retry queue.
type RetryItem struct {
	ID               string
	DeliveryID       int64
	UserID           string
	NotificationType NotificationType
	Channel          Channel
	Attempt          int
	NextRetryAt      time.Time
	Payload          NotificationPayload
}

// RetryPolicy controls deferred retries for a notification type.
// MaxRetries 0 disables deferred retry.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Outcome is the result of one channel for one notification.
type Outcome struct {
	Channel  Channel       `json:"channel"`
	Status   OutcomeStatus `json:"status"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
	Queued   bool          `json:"queued"`
}

// DeliveryFailure is published when a channel exhausts its attempts.
type DeliveryFailure struct {
	DeliveryID       int64            `json:"delivery_id"`
	UserID           string           `json:"user_id"`
	NotificationType NotificationType `json:"notification_type"`
	Channel          string           `json:"channel"`
	Attempt          int              `json:"attempt"`
	Final            bool             `json:"final"`
	Error            string           `json:"error"`
	TicketID         string           `json:"ticket_id,omitempty"`
	FailedAt         time.Time        `json:"failed_at"`
}

type Device struct {
	UserID   string
	Token    string
	Platform string
}

type Contact struct {
	UserID   string
	Email    string
	FullName string
}

type InboxItem struct {
	ID        int64
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]any
	TicketID  string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// DeliveryCounts are raw counts over the latest entry of each delivery.
// Key is the channel or type name for grouped queries.
type DeliveryCounts struct {
	Key       string
	Total     int64
	Delivered int64
	Failed    int64
}

type Stats struct {
	Key         string  `json:"key,omitempty"`
	Total       int64   `json:"total"`
	Delivered   int64   `json:"delivered"`
	Failed      int64   `json:"failed"`
	Pending     int64   `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// NewStats derives pending and success rate from raw counts.
func NewStats(c DeliveryCounts) Stats {
	st := Stats{
		Key:       c.Key,
		Total:     c.Total,
		Delivered: c.Delivered,
		Failed:    c.Failed,
		Pending:   c.Total - c.Delivered - c.Failed,
	}
	if c.Total > 0 {
		st.SuccessRate = float64(c.Delivered) / float64(c.Total)
	}
	return st
}

type StatsFilter struct {
	Since  time.Time
	UserID string
}

type FailedFilter struct {
	Limit   int32
	Offset  int32
	Type    NotificationType
	Channel Channel
}

// Delay returns the wait before the retry that follows attempt:
// InitialDelay * Multiplier^attempt, capped at MaxDelay. Without a MaxDelay
// the result saturates at the largest time.Duration.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	limit := time.Duration(math.MaxInt64)
	if p.MaxDelay > 0 {
		limit = p.MaxDelay
	}

	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(limit) {
		return limit
	}
	return time.Duration(d)
}
