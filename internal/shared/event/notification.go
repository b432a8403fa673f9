package event

import "time"

// Topics consumed by the notification service. Each is read by the
// ConsumerGroupNotification group.
const (
	NotificationRequestedDestination string = "notification_requested"
	TicketEventsDestination          string = "ticket_events"
	QuoteEventsDestination           string = "quote_events"
	OneTimeCodeRequestedDestination  string = "one_time_code_requested"
	MediaEventsDestination           string = "media_events"
	MessageEventsDestination         string = "message_events"

	ConsumerGroupNotification string = "notification"
)

// NotificationDeliveryFailedDestination receives a message for every channel
// that exhausted its inline attempts, and again when deferred retries run out.
const NotificationDeliveryFailedDestination string = "notification_delivery_failed"

type NotificationRequestedMessage struct {
	RecipientID string         `json:"recipient_id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	TicketID    string         `json:"ticket_id,omitempty"`
}

type TicketEventMessage struct {
	Type         string   `json:"type"`
	TicketID     string   `json:"ticket_id"`
	Subject      string   `json:"subject"`
	ActorID      string   `json:"actor_id"`
	ActorName    string   `json:"actor_name,omitempty"`
	RecipientIDs []string `json:"recipient_ids"`
	Status       string   `json:"status,omitempty"`
	Comment      string   `json:"comment,omitempty"`
}

type QuoteEventMessage struct {
	Type         string   `json:"type"`
	QuoteID      string   `json:"quote_id"`
	TicketID     string   `json:"ticket_id,omitempty"`
	ActorID      string   `json:"actor_id"`
	RecipientIDs []string `json:"recipient_ids"`
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency"`
}

type OneTimeCodeMessage struct {
	UserID           string `json:"user_id"`
	Code             string `json:"code"`
	Purpose          string `json:"purpose"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type MediaEventMessage struct {
	MediaID      string   `json:"media_id"`
	TicketID     string   `json:"ticket_id"`
	FileName     string   `json:"file_name"`
	UploaderID   string   `json:"uploader_id"`
	UploaderName string   `json:"uploader_name,omitempty"`
	RecipientIDs []string `json:"recipient_ids"`
}

type MessageEventMessage struct {
	ConversationID string   `json:"conversation_id"`
	TicketID       string   `json:"ticket_id,omitempty"`
	SenderID       string   `json:"sender_id"`
	SenderName     string   `json:"sender_name,omitempty"`
	RecipientIDs   []string `json:"recipient_ids"`
	Body           string   `json:"body"`
}

type NotificationDeliveryFailedMessage struct {
	DeliveryID       int64     `json:"delivery_id"`
	UserID           string    `json:"user_id"`
	NotificationType string    `json:"notification_type"`
	Channel          string    `json:"channel"`
	Attempt          int       `json:"attempt"`
	Final            bool      `json:"final"`
	Error            string    `json:"error"`
	TicketID         string    `json:"ticket_id,omitempty"`
	FailedAt         time.Time `json:"failed_at"`
}
