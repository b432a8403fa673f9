package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "notification:preferences:"

type preferences struct {
	UserID       string    `json:"user_id"`
	PushEnabled  bool      `json:"push_enabled"`
	EmailEnabled bool      `json:"email_enabled"`
	InAppEnabled bool      `json:"in_app_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Cache keeps preference rows in Redis as JSON.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func New(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func key(userID string) string { return keyPrefix + userID }

func (c *Cache) GetPreferences(ctx context.Context, userID string) (_ *entity.NotificationPreferences, err error) {
	ctx, span := c.startSpan(ctx, "GetPreferences")
	defer func() { c.endSpan(span, err) }()

	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var p preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	return &entity.NotificationPreferences{
		UserID:       p.UserID,
		PushEnabled:  p.PushEnabled,
		EmailEnabled: p.EmailEnabled,
		InAppEnabled: p.InAppEnabled,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}, nil
}

func (c *Cache) SetPreferences(ctx context.Context, p entity.NotificationPreferences, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SetPreferences")
	defer func() { c.endSpan(span, err) }()

	raw, err := json.Marshal(preferences(p))
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key(p.UserID), raw, ttl).Err()
}

func (c *Cache) DeletePreferences(ctx context.Context, userID string) (err error) {
	ctx, span := c.startSpan(ctx, "DeletePreferences")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, key(userID)).Err()
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("notification.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
