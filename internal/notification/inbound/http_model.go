package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/valueobject"
)

type NotificationRequest struct {
	RecipientID string              `json:"recipient_id"`
	Type        string              `json:"type"`
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	Data        valueobject.JSONMap `json:"data" swaggertype:"object"`
	TicketID    string              `json:"ticket_id"`
}

func (r NotificationRequest) payload() entity.NotificationPayload {
	return entity.NotificationPayload{
		RecipientID: r.RecipientID,
		Type:        entity.NotificationType(r.Type),
		Title:       r.Title,
		Message:     r.Message,
		Data:        r.Data,
		TicketID:    r.TicketID,
	}
}

type SendBulkRequest struct {
	Payloads []NotificationRequest `json:"payloads"`
}

type OutcomeResponse struct {
	Channel  string `json:"channel"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
	Queued   bool   `json:"queued"`
}

func toOutcomes(in []entity.Outcome) []OutcomeResponse {
	out := make([]OutcomeResponse, 0, len(in))
	for _, o := range in {
		out = append(out, OutcomeResponse{
			Channel:  o.Channel.String(),
			Status:   string(o.Status),
			Attempts: o.Attempts,
			Error:    o.Error,
			Queued:   o.Queued,
		})
	}
	return out
}

type SendResponse struct {
	Outcomes []OutcomeResponse `json:"outcomes"`
}

func (SendResponse) Message() string { return "notification delivered" }

type AcceptResponse struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

func (AcceptResponse) StatusCode() int { return http.StatusAccepted }

func (r AcceptResponse) Message() string {
	if r.Duplicate {
		return "notification already accepted"
	}
	return "notification accepted"
}

type BulkAcceptResponse struct {
	Accepted int `json:"accepted"`
	Chunks   int `json:"chunks"`
}

func (BulkAcceptResponse) StatusCode() int { return http.StatusAccepted }

func (BulkAcceptResponse) Message() string { return "notifications accepted" }

type PreferencesRequest struct {
	PushEnabled  *bool `json:"push_enabled"`
	EmailEnabled *bool `json:"email_enabled"`
	InAppEnabled *bool `json:"in_app_enabled"`
}

type PreferencesResponse struct {
	UserID       string     `json:"user_id"`
	PushEnabled  bool       `json:"push_enabled"`
	EmailEnabled bool       `json:"email_enabled"`
	InAppEnabled bool       `json:"in_app_enabled"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func toPreferences(p entity.NotificationPreferences) PreferencesResponse {
	resp := PreferencesResponse{
		UserID:       p.UserID,
		PushEnabled:  p.PushEnabled,
		EmailEnabled: p.EmailEnabled,
		InAppEnabled: p.InAppEnabled,
	}
	if !p.UpdatedAt.IsZero() {
		resp.UpdatedAt = &p.UpdatedAt
	}
	return resp
}

type StatsResponse struct {
	Window  string         `json:"window"`
	GroupBy string         `json:"group_by,omitempty"`
	Total   *entity.Stats  `json:"total,omitempty"`
	Groups  []entity.Stats `json:"groups,omitempty"`
}

type FailedDeliveryResponse struct {
	ID               int64     `json:"id"`
	DeliveryID       int64     `json:"delivery_id"`
	Attempt          int       `json:"attempt"`
	UserID           string    `json:"user_id"`
	NotificationType string    `json:"notification_type"`
	Channel          string    `json:"channel"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Note             string    `json:"note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type FailedDeliveriesResponse struct {
	Deliveries []FailedDeliveryResponse `json:"deliveries"`
	limit      int32
	offset     int32
}

func (r FailedDeliveriesResponse) Meta() map[string]any {
	return map[string]any{"limit": r.limit, "offset": r.offset, "count": len(r.Deliveries)}
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type RemoveDeviceRequest struct {
	Token string `json:"token"`
}

type InboxItemResponse struct {
	ID        int64               `json:"id"`
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message,omitempty"`
	Data      valueobject.JSONMap `json:"data,omitempty" swaggertype:"object"`
	TicketID  string              `json:"ticket_id,omitempty"`
	ReadAt    *time.Time          `json:"read_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func toInboxItem(it entity.InboxItem) InboxItemResponse {
	return InboxItemResponse{
		ID:        it.ID,
		Type:      it.Type.String(),
		Title:     it.Title,
		Message:   it.Message,
		Data:      it.Data,
		TicketID:  it.TicketID,
		ReadAt:    it.ReadAt,
		CreatedAt: it.CreatedAt,
	}
}

type InboxResponse struct {
	Notifications []InboxItemResponse `json:"notifications"`
}
