package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/valueobject"
)

const preferenceColumns = `user_id, push_enabled, email_enabled, in_app_enabled, created_at, updated_at`

func scanPreferences(row pgx.Row) (*entity.NotificationPreferences, error) {
	var p entity.NotificationPreferences
	if err := row.Scan(&p.UserID, &p.PushEnabled, &p.EmailEnabled, &p.InAppEnabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *DB) GetPreferences(ctx context.Context, userID string) (_ *entity.NotificationPreferences, err error) {
	ctx, span := s.startSpan(ctx, "GetPreferences")
	defer func() { s.endSpan(span, err) }()

	p, err := scanPreferences(s.conn.QueryRow(ctx,
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`, userID))
	if err != nil {
		return nil, s.mapError(err)
	}

	return p, nil
}

// latestDeliveries keeps the newest entry of every delivery inside the window.
// $1 since, $2 user id, empty for everyone.
const latestDeliveries = `
WITH latest AS (
    SELECT DISTINCT ON (delivery_id)
        delivery_id, channel, notification_type, status, will_retry
    FROM notification_delivery_logs
    WHERE created_at >= $1 AND ($2 = '' OR user_id = $2)
    ORDER BY delivery_id, attempt DESC, id DESC
)`

const countColumns = `
    count(*),
    count(*) FILTER (WHERE status = 1),
    count(*) FILTER (WHERE status = 2 AND NOT will_retry)`

func (s *DB) CountDeliveries(ctx context.Context, f entity.StatsFilter) (_ entity.DeliveryCounts, err error) {
	ctx, span := s.startSpan(ctx, "CountDeliveries")
	defer func() { s.endSpan(span, err) }()

	var c entity.DeliveryCounts
	err = s.conn.QueryRow(ctx, latestDeliveries+` SELECT `+countColumns+` FROM latest`, f.Since, f.UserID).
		Scan(&c.Total, &c.Delivered, &c.Failed)
	if err != nil {
		return entity.DeliveryCounts{}, s.mapError(err)
	}

	return c, nil
}

func (s *DB) CountDeliveriesByChannel(ctx context.Context, f entity.StatsFilter) (_ []entity.DeliveryCounts, err error) {
	ctx, span := s.startSpan(ctx, "CountDeliveriesByChannel")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		latestDeliveries+` SELECT channel,`+countColumns+` FROM latest GROUP BY channel ORDER BY channel`,
		f.Since, f.UserID)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.DeliveryCounts, error) {
		var (
			ch int16
			c  entity.DeliveryCounts
		)
		err := row.Scan(&ch, &c.Total, &c.Delivered, &c.Failed)
		c.Key = entity.Channel(ch).String()
		return c, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func (s *DB) CountDeliveriesByType(ctx context.Context, f entity.StatsFilter) (_ []entity.DeliveryCounts, err error) {
	ctx, span := s.startSpan(ctx, "CountDeliveriesByType")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		latestDeliveries+` SELECT notification_type,`+countColumns+` FROM latest GROUP BY notification_type ORDER BY notification_type`,
		f.Since, f.UserID)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.DeliveryCounts, error) {
		var c entity.DeliveryCounts
		err := row.Scan(&c.Key, &c.Total, &c.Delivered, &c.Failed)
		return c, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

const deliveryLogColumns = `id, delivery_id, attempt, user_id, notification_type, channel, status, will_retry, error_message, note, created_at`

func scanDeliveryLog(row pgx.CollectableRow) (entity.DeliveryLogEntry, error) {
	var (
		e      entity.DeliveryLogEntry
		nt     string
		ch, st int16
	)
	err := row.Scan(&e.ID, &e.DeliveryID, &e.Attempt, &e.UserID, &nt, &ch, &st, &e.WillRetry, &e.ErrorMessage, &e.Note, &e.CreatedAt)
	e.NotificationType = entity.NotificationType(nt)
	e.Channel = entity.Channel(ch)
	e.Status = entity.DeliveryStatus(st)
	return e, err
}

// ListFailedDeliveries returns final failures, newest first. Zero-valued
// filter fields match everything.
func (s *DB) ListFailedDeliveries(ctx context.Context, f entity.FailedFilter) (_ []entity.DeliveryLogEntry, err error) {
	ctx, span := s.startSpan(ctx, "ListFailedDeliveries")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
SELECT `+deliveryLogColumns+`
FROM notification_delivery_logs
WHERE status = 2 AND NOT will_retry
  AND ($1 = '' OR notification_type = $1)
  AND ($2 = 0 OR channel = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`,
		f.Type.String(), int16(f.Channel), f.Limit, f.Offset)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanDeliveryLog)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

// ListDeliveryLogsBefore returns up to limit entries created before before, in id order.
func (s *DB) ListDeliveryLogsBefore(ctx context.Context, before time.Time, limit int32) (_ []entity.DeliveryLogEntry, err error) {
	ctx, span := s.startSpan(ctx, "ListDeliveryLogsBefore")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
SELECT `+deliveryLogColumns+`
FROM notification_delivery_logs
WHERE created_at < $1
ORDER BY id
LIMIT $2`, before, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanDeliveryLog)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func (s *DB) ListDeviceTokens(ctx context.Context, userID string) (_ []string, err error) {
	ctx, span := s.startSpan(ctx, "ListDeviceTokens")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT device_token FROM notification_user_devices WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, s.mapError(err)
	}

	return tokens, nil
}

func (s *DB) GetContact(ctx context.Context, userID string) (_ *entity.Contact, err error) {
	ctx, span := s.startSpan(ctx, "GetContact")
	defer func() { s.endSpan(span, err) }()

	var c entity.Contact
	err = s.conn.QueryRow(ctx,
		`SELECT user_id, email, full_name FROM notification_contacts WHERE user_id = $1`, userID).
		Scan(&c.UserID, &c.Email, &c.FullName)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &c, nil
}

func (s *DB) ListInbox(ctx context.Context, userID string, status entity.InboxStatus, limit, offset int32) (_ []entity.InboxItem, err error) {
	ctx, span := s.startSpan(ctx, "ListInbox")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
SELECT id, user_id, type, title, message, data, ticket_id, read_at, created_at
FROM notification_inbox
WHERE user_id = $1
  AND ($2 = 'all' OR ($2 = 'unread' AND read_at IS NULL) OR ($2 = 'read' AND read_at IS NOT NULL))
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, userID, string(status), limit, offset)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.InboxItem, error) {
		var (
			it   entity.InboxItem
			nt   string
			data valueobject.JSONMap
		)
		err := row.Scan(&it.ID, &it.UserID, &nt, &it.Title, &it.Message, &data, &it.TicketID, &it.ReadAt, &it.CreatedAt)
		it.Type = entity.NotificationType(nt)
		it.Data = data
		return it, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}
