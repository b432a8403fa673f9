package inbound

import (
	"context"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/usecase"
)

type ucConsumer interface {
	Notify(ctx context.Context, ev entity.Event) ([]entity.Outcome, error)
	ConsumeUserRegistration(ctx context.Context, in usecase.UserRegisteredInput) error
}

type ucStream interface {
	StreamNotifications(ctx context.Context) (<-chan entity.InboxItem, error)
}

type ucJob interface {
	ProcessRetryQueue(ctx context.Context) error
	PurgeDeliveryLogs(ctx context.Context) (int64, error)
}

type uc interface {
	ucConsumer
	ucStream

	SendNotification(ctx context.Context, in usecase.SendNotificationInput) ([]entity.Outcome, error)
	AcceptNotification(ctx context.Context, in usecase.AcceptNotificationInput) (usecase.AcceptResult, error)
	AcceptBulkNotifications(ctx context.Context, in usecase.SendBulkInput) (usecase.BulkResult, error)

	GetPreferences(ctx context.Context, in usecase.UserInput) (entity.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, in usecase.UpdatePreferencesInput) (entity.NotificationPreferences, error)
	EnableChannel(ctx context.Context, in usecase.ChannelInput) (entity.NotificationPreferences, error)
	DisableChannel(ctx context.Context, in usecase.ChannelInput) (entity.NotificationPreferences, error)

	GetDeliveryStats(ctx context.Context, in usecase.StatsInput) (*entity.Stats, error)
	GetChannelStats(ctx context.Context, in usecase.StatsInput) ([]entity.Stats, error)
	GetNotificationTypeStats(ctx context.Context, in usecase.StatsInput) ([]entity.Stats, error)
	GetFailedDeliveries(ctx context.Context, in usecase.FailedDeliveriesInput) ([]entity.DeliveryLogEntry, error)

	RegisterDevice(ctx context.Context, in usecase.RegisterDeviceInput) error
	RemoveDevice(ctx context.Context, in usecase.RemoveDeviceInput) error

	ListInbox(ctx context.Context, in usecase.ListInboxInput) ([]entity.InboxItem, error)
	MarkInboxRead(ctx context.Context, in usecase.MarkInboxReadInput) error
}
