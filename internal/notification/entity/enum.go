package entity

import (
	"strings"
)

type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelInApp   Channel = 1
	ChannelEmail   Channel = 2
	ChannelPush    Channel = 3
)

// Channels lists every deliverable channel in fan-out order.
var Channels = []Channel{ChannelPush, ChannelEmail, ChannelInApp}

func ChannelFromString(raw string) Channel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in_app":
		return ChannelInApp
	case "email":
		return ChannelEmail
	case "push":
		return ChannelPush
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelInApp:
		return "in_app"
	case ChannelEmail:
		return "email"
	case ChannelPush:
		return "push"
	default:
		return "unknown"
	}
}

// DeliveryStatus is the terminal state of one logged attempt.
type DeliveryStatus int16

const (
	DeliveryStatusUnknown   DeliveryStatus = 0
	DeliveryStatusDelivered DeliveryStatus = 1
	DeliveryStatusFailed    DeliveryStatus = 2
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryStatusDelivered:
		return "delivered"
	case DeliveryStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OutcomeStatus is the per-channel result returned to dispatch callers.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

type NotificationType string

const (
	TypeTicketCreated       NotificationType = "ticket_created"
	TypeTicketUpdated       NotificationType = "ticket_updated"
	TypeTicketAssigned      NotificationType = "ticket_assigned"
	TypeTicketStatusChanged NotificationType = "ticket_status_changed"
	TypeTicketComment       NotificationType = "ticket_comment"
	TypeTicketResolved      NotificationType = "ticket_resolved"
	TypeQuoteCreated        NotificationType = "quote_created"
	TypeQuoteAccepted       NotificationType = "quote_accepted"
	TypeQuoteRejected       NotificationType = "quote_rejected"
	TypeOneTimeCode         NotificationType = "one_time_code"
	TypeMediaUploaded       NotificationType = "media_uploaded"
	TypeMessageReceived     NotificationType = "message_received"
	TypeSystem              NotificationType = "system"
)

var notificationTypes = map[NotificationType]struct{}{
	TypeTicketCreated:       {},
	TypeTicketUpdated:       {},
	TypeTicketAssigned:      {},
	TypeTicketStatusChanged: {},
	TypeTicketComment:       {},
	TypeTicketResolved:      {},
	TypeQuoteCreated:        {},
	TypeQuoteAccepted:       {},
	TypeQuoteRejected:       {},
	TypeOneTimeCode:         {},
	TypeMediaUploaded:       {},
	TypeMessageReceived:     {},
	TypeSystem:              {},
}

func (t NotificationType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the known notification kinds.
func (t NotificationType) IsValid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// IsTicket reports whether t belongs to the ticket lifecycle.
func (t NotificationType) IsTicket() bool {
	return strings.HasPrefix(string(t), "ticket_")
}

// IsQuote reports whether t belongs to the quote lifecycle.
func (t NotificationType) IsQuote() bool {
	return strings.HasPrefix(string(t), "quote_")
}

type InboxStatus string

const (
	InboxStatusAll    InboxStatus = "all"
	InboxStatusUnread InboxStatus = "unread"
	InboxStatusRead   InboxStatus = "read"
)
