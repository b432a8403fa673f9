package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
)

var errUnknownChannel = errors.New("unknown notification channel")

func preferenceColumn(ch entity.Channel) (string, error) {
	switch ch {
	case entity.ChannelPush:
		return "push_enabled", nil
	case entity.ChannelEmail:
		return "email_enabled", nil
	case entity.ChannelInApp:
		return "in_app_enabled", nil
	default:
		return "", errUnknownChannel
	}
}

// SetPreferenceChannel flips one channel, creating the all-enabled row first
// when the user has none.
func (s *DB) SetPreferenceChannel(ctx context.Context, userID string, ch entity.Channel, enabled bool, now time.Time) (_ *entity.NotificationPreferences, err error) {
	ctx, span := s.startSpan(ctx, "SetPreferenceChannel")
	defer func() { s.endSpan(span, err) }()

	column, err := preferenceColumn(ch)
	if err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, s.mapError(err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	if _, err = tx.Exec(ctx, `
INSERT INTO notification_preferences (user_id, created_at, updated_at)
VALUES ($1, $2, $2)
ON CONFLICT (user_id) DO NOTHING`, userID, now); err != nil {
		return nil, s.mapError(err)
	}

	p, err := scanPreferences(tx.QueryRow(ctx,
		`UPDATE notification_preferences SET `+column+` = $2, updated_at = $3 WHERE user_id = $1 RETURNING `+preferenceColumns,
		userID, enabled, now))
	if err != nil {
		return nil, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, s.mapError(err)
	}

	return p, nil
}
