package inbound

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/usecase"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	defaultStatsWindow   = "24h"
)

type HTTPEndpoint struct {
	uc uc
}

// Send delivers a notification to one recipient.
// @Summary Send notification
// @Description Accepts a notification for background delivery. With strict=true the
// @Description notification is delivered before responding and a channel that failed
// @Description every attempt turns into a 502.
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Deduplicates retried requests"
// @Param strict query bool false "Deliver synchronously"
// @Param request body NotificationRequest true "Notification payload"
// @Success 200 {object} router.successResponse{data=SendResponse} "Delivered (strict)"
// @Success 202 {object} router.successResponse{data=AcceptResponse} "Accepted"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Request with this key in progress"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 502 {object} router.errorResponse "Delivery failed"
// @Router /api/v1/notifications/send [post]
func (h *HTTPEndpoint) Send(r *router.Request) (any, error) {
	var req NotificationRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	strict, err := r.GetQueryBool("strict")
	if err != nil {
		return nil, err
	}

	if strict {
		outcomes, err := h.uc.SendNotification(r.Context(), usecase.SendNotificationInput{
			Payload: req.payload(),
			Strict:  true,
		})
		if err != nil {
			return nil, err
		}
		return SendResponse{Outcomes: toOutcomes(outcomes)}, nil
	}

	res, err := h.uc.AcceptNotification(r.Context(), usecase.AcceptNotificationInput{
		Payload:        req.payload(),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotencyKey)),
	})
	if err != nil {
		return nil, err
	}

	return AcceptResponse{Accepted: res.Accepted, Duplicate: res.Duplicate}, nil
}

// SendBulk accepts a batch of notifications.
// @Summary Send bulk notifications
// @Description Accepts up to 1000 notifications. They are delivered in the background
// @Description in chunks of 100 with a pause between chunks.
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SendBulkRequest true "Notification payloads"
// @Success 202 {object} router.successResponse{data=BulkAcceptResponse} "Accepted"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Router /api/v1/notifications/send-bulk [post]
func (h *HTTPEndpoint) SendBulk(r *router.Request) (any, error) {
	var req SendBulkRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	res, err := h.uc.AcceptBulkNotifications(r.Context(), usecase.SendBulkInput{
		Payloads: lo.Map(req.Payloads, func(p NotificationRequest, _ int) entity.NotificationPayload {
			return p.payload()
		}),
	})
	if err != nil {
		return nil, err
	}

	return BulkAcceptResponse{Accepted: res.Accepted, Chunks: res.Chunks}, nil
}

// ListInbox returns the in-app notifications of the caller.
// @Summary List in-app notifications
// @Tags Inbox
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (all|read|unread)"
// @Param limit query int false "Pagination limit"
// @Param offset query int false "Pagination offset"
// @Success 200 {object} router.successResponse{data=InboxResponse} "Notification list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/in-app [get]
func (h *HTTPEndpoint) ListInbox(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListInbox(r.Context(), usecase.ListInboxInput{
		Status: r.GetQuery("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	return InboxResponse{Notifications: lo.Map(items, func(it entity.InboxItem, _ int) InboxItemResponse {
		return toInboxItem(it)
	})}, nil
}

// MarkInboxRead marks an in-app notification as read.
// @Summary Mark in-app notification read
// @Tags Inbox
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid notification id"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Router /api/v1/notifications/in-app/{id}/read [put]
func (h *HTTPEndpoint) MarkInboxRead(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.MarkInboxRead(r.Context(), usecase.MarkInboxReadInput{ID: id})
}

// GetPreferences returns the channel preferences of a user.
// @Summary Get preferences
// @Tags Preference
// @Security BearerAuth
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} router.successResponse{data=PreferencesResponse} "Preferences"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Router /api/v1/notifications/preferences/{userId} [get]
func (h *HTTPEndpoint) GetPreferences(r *router.Request) (any, error) {
	p, err := h.uc.GetPreferences(r.Context(), usecase.UserInput{UserID: r.GetParam("userId")})
	if err != nil {
		return nil, err
	}

	return toPreferences(p), nil
}

// UpdatePreferences replaces the channel preferences of a user.
// @Summary Update preferences
// @Tags Preference
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body PreferencesRequest true "All three channel flags"
// @Success 200 {object} router.successResponse{data=PreferencesResponse} "Preferences"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/preferences/{userId} [put]
func (h *HTTPEndpoint) UpdatePreferences(r *router.Request) (any, error) {
	var req PreferencesRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	p, err := h.uc.UpdatePreferences(r.Context(), usecase.UpdatePreferencesInput{
		UserID:       r.GetParam("userId"),
		PushEnabled:  req.PushEnabled,
		EmailEnabled: req.EmailEnabled,
		InAppEnabled: req.InAppEnabled,
	})
	if err != nil {
		return nil, err
	}

	return toPreferences(p), nil
}

// EnableChannel turns one channel on for a user.
// @Summary Enable channel
// @Tags Preference
// @Security BearerAuth
// @Produce json
// @Param userId path string true "User ID"
// @Param channel path string true "push|email|in_app"
// @Success 200 {object} router.successResponse{data=PreferencesResponse} "Preferences"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/preferences/{userId}/enable/{channel} [post]
func (h *HTTPEndpoint) EnableChannel(r *router.Request) (any, error) {
	p, err := h.uc.EnableChannel(r.Context(), usecase.ChannelInput{
		UserID:  r.GetParam("userId"),
		Channel: r.GetParam("channel"),
	})
	if err != nil {
		return nil, err
	}

	return toPreferences(p), nil
}

// DisableChannel turns one channel off for a user.
// @Summary Disable channel
// @Tags Preference
// @Security BearerAuth
// @Produce json
// @Param userId path string true "User ID"
// @Param channel path string true "push|email|in_app"
// @Success 200 {object} router.successResponse{data=PreferencesResponse} "Preferences"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/preferences/{userId}/disable/{channel} [post]
func (h *HTTPEndpoint) DisableChannel(r *router.Request) (any, error) {
	p, err := h.uc.DisableChannel(r.Context(), usecase.ChannelInput{
		UserID:  r.GetParam("userId"),
		Channel: r.GetParam("channel"),
	})
	if err != nil {
		return nil, err
	}

	return toPreferences(p), nil
}

// Stats returns delivery statistics over a trailing window.
// @Summary Delivery stats
// @Tags Stats
// @Security BearerAuth
// @Produce json
// @Param window query string false "Trailing window, e.g. 24h (default 24h, max 2160h)"
// @Param user_id query string false "Only deliveries to this user"
// @Param group_by query string false "channel|type"
// @Success 200 {object} router.successResponse{data=StatsResponse} "Stats"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/stats [get]
func (h *HTTPEndpoint) Stats(r *router.Request) (any, error) {
	resp := StatsResponse{Window: r.GetQuery("window"), GroupBy: r.GetQuery("group_by")}

	var window time.Duration
	if resp.Window == "" {
		resp.Window = defaultStatsWindow
	} else {
		d, err := time.ParseDuration(resp.Window)
		if err != nil {
			return nil, goerror.NewInvalidInput(nil, "window", "window must be a duration such as 24h")
		}
		window = d
	}

	in := usecase.StatsInput{Window: window, UserID: r.GetQuery("user_id")}

	switch resp.GroupBy {
	case "":
		st, err := h.uc.GetDeliveryStats(r.Context(), in)
		if err != nil {
			return nil, err
		}
		resp.Total = st
	case "channel":
		groups, err := h.uc.GetChannelStats(r.Context(), in)
		if err != nil {
			return nil, err
		}
		resp.Groups = groups
	case "type":
		groups, err := h.uc.GetNotificationTypeStats(r.Context(), in)
		if err != nil {
			return nil, err
		}
		resp.Groups = groups
	default:
		return nil, goerror.NewInvalidInput(nil, "group_by", "group_by must be one of [channel type]")
	}

	return resp, nil
}

// FailedDeliveries lists deliveries that will not be retried any more.
// @Summary Failed deliveries
// @Tags Stats
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Pagination limit (default 20, max 100)"
// @Param offset query int false "Pagination offset"
// @Param type query string false "Notification type"
// @Param channel query string false "push|email|in_app"
// @Success 200 {object} router.successResponse{data=FailedDeliveriesResponse} "Failed deliveries"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/failed [get]
func (h *HTTPEndpoint) FailedDeliveries(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	entries, err := h.uc.GetFailedDeliveries(r.Context(), usecase.FailedDeliveriesInput{
		Limit:   limit,
		Offset:  offset,
		Type:    r.GetQuery("type"),
		Channel: r.GetQuery("channel"),
	})
	if err != nil {
		return nil, err
	}

	return FailedDeliveriesResponse{
		Deliveries: lo.Map(entries, func(e entity.DeliveryLogEntry, _ int) FailedDeliveryResponse {
			return FailedDeliveryResponse{
				ID:               e.ID,
				DeliveryID:       e.DeliveryID,
				Attempt:          e.Attempt,
				UserID:           e.UserID,
				NotificationType: e.NotificationType.String(),
				Channel:          e.Channel.String(),
				ErrorMessage:     lo.FromPtr(e.ErrorMessage),
				Note:             lo.FromPtr(e.Note),
				CreatedAt:        e.CreatedAt,
			}
		}),
		limit:  limit,
		offset: offset,
	}, nil
}

// RegisterDevice registers a push device token for the caller.
// @Summary Register device
// @Tags Device
// @Security BearerAuth
// @Accept json
// @Param request body RegisterDeviceRequest true "Device registration payload"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Router /api/v1/notifications/devices [post]
func (h *HTTPEndpoint) RegisterDevice(r *router.Request) (any, error) {
	var req RegisterDeviceRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return nil, h.uc.RegisterDevice(r.Context(), usecase.RegisterDeviceInput{
		Token:    req.Token,
		Platform: req.Platform,
	})
}

// RemoveDevice removes a push device token of the caller.
// @Summary Remove device
// @Tags Device
// @Security BearerAuth
// @Accept json
// @Param request body RemoveDeviceRequest true "Device removal payload"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Device not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications/devices [delete]
func (h *HTTPEndpoint) RemoveDevice(r *router.Request) (any, error) {
	var req RemoveDeviceRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return nil, h.uc.RemoveDevice(r.Context(), usecase.RemoveDeviceInput{Token: req.Token})
}
