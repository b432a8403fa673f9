package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
)

func (s *DB) UpsertPreferences(ctx context.Context, p entity.NotificationPreferences) (_ *entity.NotificationPreferences, err error) {
	ctx, span := s.startSpan(ctx, "UpsertPreferences")
	defer func() { s.endSpan(span, err) }()

	saved, err := scanPreferences(s.conn.QueryRow(ctx, `
INSERT INTO notification_preferences (user_id, push_enabled, email_enabled, in_app_enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE
SET push_enabled = EXCLUDED.push_enabled,
    email_enabled = EXCLUDED.email_enabled,
    in_app_enabled = EXCLUDED.in_app_enabled,
    updated_at = EXCLUDED.updated_at
RETURNING `+preferenceColumns,
		p.UserID, p.PushEnabled, p.EmailEnabled, p.InAppEnabled, p.CreatedAt, p.UpdatedAt))
	if err != nil {
		return nil, s.mapError(err)
	}

	return saved, nil
}

func (s *DB) UpsertContact(ctx context.Context, c entity.Contact) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertContact")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO notification_contacts (user_id, email, full_name)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE
SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, updated_at = now()`,
		c.UserID, c.Email, c.FullName)
	return s.mapError(err)
}

// MarkInboxRead reports whether the item exists for the user. Reading twice
// keeps the first read time.
func (s *DB) MarkInboxRead(ctx context.Context, userID string, id int64, at time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkInboxRead")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE notification_inbox SET read_at = COALESCE(read_at, $3) WHERE id = $1 AND user_id = $2`,
		id, userID, at)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}
