package db

import "context"

func (s *DB) RemoveUserDevice(ctx context.Context, userID, token string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "RemoveUserDevice")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`DELETE FROM notification_user_devices WHERE user_id = $1 AND device_token = $2`, userID, token)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

// RemoveDeviceTokens drops tokens the push provider reported as unregistered.
func (s *DB) RemoveDeviceTokens(ctx context.Context, tokens []string) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "RemoveDeviceTokens")
	defer func() { s.endSpan(span, err) }()

	if len(tokens) == 0 {
		return 0, nil
	}

	tag, err := s.conn.Exec(ctx, `DELETE FROM notification_user_devices WHERE device_token = ANY($1)`, tokens)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func (s *DB) DeleteDeliveryLogs(ctx context.Context, ids []int64) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteDeliveryLogs")
	defer func() { s.endSpan(span, err) }()

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.conn.Exec(ctx, `DELETE FROM notification_delivery_logs WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}
