package db

import (
	"context"
	"errors"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/valueobject"
)

// CreatePreferences inserts p unless a row exists; either way the stored row is returned.
func (s *DB) CreatePreferences(ctx context.Context, p entity.NotificationPreferences) (_ *entity.NotificationPreferences, err error) {
	ctx, span := s.startSpan(ctx, "CreatePreferences")
	defer func() { s.endSpan(span, err) }()

	created, err := scanPreferences(s.conn.QueryRow(ctx, `
INSERT INTO notification_preferences (user_id, push_enabled, email_enabled, in_app_enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO NOTHING
RETURNING `+preferenceColumns,
		p.UserID, p.PushEnabled, p.EmailEnabled, p.InAppEnabled, p.CreatedAt, p.UpdatedAt))
	if err = s.mapError(err); errors.Is(err, goerror.ErrNotFound) {
		// lost the race to a concurrent insert
		return s.GetPreferences(ctx, p.UserID)
	}
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *DB) CreateDeliveryLog(ctx context.Context, e entity.DeliveryLogEntry) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO notification_delivery_logs
    (id, delivery_id, attempt, user_id, notification_type, channel, status, will_retry, error_message, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.DeliveryID, e.Attempt, e.UserID, e.NotificationType.String(),
		int16(e.Channel), int16(e.Status), e.WillRetry, e.ErrorMessage, e.Note, e.CreatedAt)
	return s.mapError(err)
}

// RegisterUserDevice stores a token; a token moves to the latest user that registers it.
func (s *DB) RegisterUserDevice(ctx context.Context, d entity.Device) (err error) {
	ctx, span := s.startSpan(ctx, "RegisterUserDevice")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO notification_user_devices (device_token, user_id, platform)
VALUES ($1, $2, $3)
ON CONFLICT (device_token) DO UPDATE
SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = now()`,
		d.Token, d.UserID, d.Platform)
	return s.mapError(err)
}

func (s *DB) CreateInboxItem(ctx context.Context, it entity.InboxItem) (err error) {
	ctx, span := s.startSpan(ctx, "CreateInboxItem")
	defer func() { s.endSpan(span, err) }()

	data := valueobject.JSONMap(it.Data)
	if data == nil {
		data = valueobject.JSONMap{}
	}

	_, err = s.conn.Exec(ctx, `
INSERT INTO notification_inbox (id, user_id, type, title, message, data, ticket_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.UserID, it.Type.String(), it.Title, it.Message, data, it.TicketID, it.CreatedAt)
	return s.mapError(err)
}
