package entity

import (
	"fmt"
	"slices"
	"strings"
)

// Event is an upstream business event that turns into notifications.
type Event interface {
	Notifications() []NotificationPayload
}

// PayloadEvent wraps an already built payload.
type PayloadEvent struct {
	Payload NotificationPayload
}

func (e PayloadEvent) Notifications() []NotificationPayload {
	return []NotificationPayload{e.Payload}
}

type TicketEvent struct {
	Type         NotificationType
	TicketID     string
	Subject      string
	ActorID      string
	ActorName    string
	RecipientIDs []string
	Status       string
	Comment      string
}

func (e TicketEvent) Notifications() []NotificationPayload {
	var title, msg string
	switch e.Type {
	case TypeTicketCreated:
		title = "New ticket: " + e.Subject
		msg = fmt.Sprintf("%s opened ticket %q.", actor(e.ActorName), e.Subject)
	case TypeTicketUpdated:
		title = "Ticket updated: " + e.Subject
		msg = fmt.Sprintf("%s updated ticket %q.", actor(e.ActorName), e.Subject)
	case TypeTicketAssigned:
		title = "Ticket assigned: " + e.Subject
		msg = fmt.Sprintf("%s assigned ticket %q.", actor(e.ActorName), e.Subject)
	case TypeTicketStatusChanged:
		title = "Ticket status changed: " + e.Subject
		msg = fmt.Sprintf("Ticket %q is now %s.", e.Subject, e.Status)
	case TypeTicketComment:
		title = "New comment on " + e.Subject
		msg = fmt.Sprintf("%s commented: %s", actor(e.ActorName), e.Comment)
	case TypeTicketResolved:
		title = "Ticket resolved: " + e.Subject
		msg = fmt.Sprintf("Ticket %q has been resolved.", e.Subject)
	default:
		return nil
	}

	data := map[string]any{"ticket_id": e.TicketID}
	if e.Status != "" {
		data["status"] = e.Status
	}

	return fanOut(e.RecipientIDs, e.ActorID, NotificationPayload{
		Type:     e.Type,
		Title:    title,
		Message:  msg,
		Data:     data,
		TicketID: e.TicketID,
	})
}

type QuoteEvent struct {
	Type         NotificationType
	QuoteID      string
	TicketID     string
	ActorID      string
	RecipientIDs []string
	Amount       string
	Currency     string
}

func (e QuoteEvent) Notifications() []NotificationPayload {
	var title string
	switch e.Type {
	case TypeQuoteCreated:
		title = "New quote received"
	case TypeQuoteAccepted:
		title = "Quote accepted"
	case TypeQuoteRejected:
		title = "Quote rejected"
	default:
		return nil
	}

	msg := title
	if e.Amount != "" {
		msg = strings.TrimSpace(fmt.Sprintf("%s: %s %s", title, e.Amount, e.Currency))
	}

	return fanOut(e.RecipientIDs, e.ActorID, NotificationPayload{
		Type:     e.Type,
		Title:    title,
		Message:  msg,
		Data:     map[string]any{"quote_id": e.QuoteID, "ticket_id": e.TicketID},
		TicketID: e.TicketID,
	})
}

type OneTimeCodeEvent struct {
	UserID           string
	Code             string
	Purpose          string
	ExpiresInMinutes int
}

func (e OneTimeCodeEvent) Notifications() []NotificationPayload {
	msg := "Your verification code is " + e.Code + "."
	if e.ExpiresInMinutes > 0 {
		msg += fmt.Sprintf(" It expires in %d minutes.", e.ExpiresInMinutes)
	}

	return []NotificationPayload{{
		RecipientID: e.UserID,
		Type:        TypeOneTimeCode,
		Title:       "Your verification code",
		Message:     msg,
		Data:        map[string]any{"code": e.Code, "purpose": e.Purpose},
	}}
}

type MediaEvent struct {
	MediaID      string
	TicketID     string
	FileName     string
	UploaderID   string
	UploaderName string
	RecipientIDs []string
}

func (e MediaEvent) Notifications() []NotificationPayload {
	return fanOut(e.RecipientIDs, e.UploaderID, NotificationPayload{
		Type:     TypeMediaUploaded,
		Title:    "New file uploaded",
		Message:  fmt.Sprintf("%s uploaded %s.", actor(e.UploaderName), e.FileName),
		Data:     map[string]any{"media_id": e.MediaID, "ticket_id": e.TicketID},
		TicketID: e.TicketID,
	})
}

type MessageEvent struct {
	ConversationID string
	TicketID       string
	SenderID       string
	SenderName     string
	RecipientIDs   []string
	Preview        string
}

func (e MessageEvent) Notifications() []NotificationPayload {
	preview := e.Preview
	if r := []rune(preview); len(r) > 140 {
		preview = string(r[:140]) + "..."
	}

	return fanOut(e.RecipientIDs, e.SenderID, NotificationPayload{
		Type:     TypeMessageReceived,
		Title:    "New message from " + actor(e.SenderName),
		Message:  preview,
		Data:     map[string]any{"conversation_id": e.ConversationID, "ticket_id": e.TicketID},
		TicketID: e.TicketID,
	})
}

// fanOut clones base for every distinct recipient except the actor.
func fanOut(recipients []string, actorID string, base NotificationPayload) []NotificationPayload {
	seen := make([]string, 0, len(recipients))
	out := make([]NotificationPayload, 0, len(recipients))
	for _, id := range recipients {
		id = strings.TrimSpace(id)
		if id == "" || id == actorID || slices.Contains(seen, id) {
			continue
		}
		seen = append(seen, id)

		p := base.Clone()
		p.RecipientID = id
		out = append(out, p)
	}
	return out
}

func actor(name string) string {
	if name == "" {
		return "Someone"
	}
	return name
}
