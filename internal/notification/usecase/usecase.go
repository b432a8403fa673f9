package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/clock"
	"github.com/shandysiswandi/gonotif/internal/pkg/config"
	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/shandysiswandi/gonotif/internal/pkg/idempotency"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/uid"
	"github.com/shandysiswandi/gonotif/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	GetPreferences(ctx context.Context, userID string) (*entity.NotificationPreferences, error)
	CreatePreferences(ctx context.Context, p entity.NotificationPreferences) (*entity.NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, p entity.NotificationPreferences) (*entity.NotificationPreferences, error)
	SetPreferenceChannel(ctx context.Context, userID string, ch entity.Channel, enabled bool, now time.Time) (*entity.NotificationPreferences, error)

	CreateDeliveryLog(ctx context.Context, e entity.DeliveryLogEntry) error
	CountDeliveries(ctx context.Context, f entity.StatsFilter) (entity.DeliveryCounts, error)
	CountDeliveriesByChannel(ctx context.Context, f entity.StatsFilter) ([]entity.DeliveryCounts, error)
	CountDeliveriesByType(ctx context.Context, f entity.StatsFilter) ([]entity.DeliveryCounts, error)
	ListFailedDeliveries(ctx context.Context, f entity.FailedFilter) ([]entity.DeliveryLogEntry, error)
	ListDeliveryLogsBefore(ctx context.Context, before time.Time, limit int32) ([]entity.DeliveryLogEntry, error)
	DeleteDeliveryLogs(ctx context.Context, ids []int64) (int64, error)

	RegisterUserDevice(ctx context.Context, d entity.Device) error
	RemoveUserDevice(ctx context.Context, userID, token string) (bool, error)
	UpsertContact(ctx context.Context, c entity.Contact) error

	ListInbox(ctx context.Context, userID string, status entity.InboxStatus, limit, offset int32) ([]entity.InboxItem, error)
	MarkInboxRead(ctx context.Context, userID string, id int64, at time.Time) (bool, error)
}

type repoCache interface {
	GetPreferences(ctx context.Context, userID string) (*entity.NotificationPreferences, error)
	SetPreferences(ctx context.Context, p entity.NotificationPreferences, ttl time.Duration) error
	DeletePreferences(ctx context.Context, userID string) error
}

type repoMQ interface {
	PublishDeliveryFailed(ctx context.Context, f entity.DeliveryFailure) error
}

type repoArchive interface {
	ArchiveDeliveryLogs(ctx context.Context, key string, entries []entity.DeliveryLogEntry) error
}

type streamHub interface {
	Subscribe(ctx context.Context, userID string) <-chan entity.InboxItem
}

// Sender delivers a payload to a recipient over one channel.
//
// Send returns entity.ErrNoRecipientAddress when the recipient cannot be
// reached on the channel at all; any other error is retried.
type Sender interface {
	Send(ctx context.Context, recipientID string, p entity.NotificationPayload) error
}

type Usecase struct {
	repoDB      repoDB
	repoCache   repoCache
	repoMQ      repoMQ
	repoArchive repoArchive
	stream      streamHub
	senders     map[entity.Channel]Sender
	idem        idempotency.Idempotency
	uid         uid.NumberID
	clock       clock.Clock
	validator   validator.Validator
	goroutine   *goroutine.Manager
	ins         instrument.Instrumentation
	opts        options
	policies    retryPolicies
	retryQueue  *RetryQueue
	deliveries  metric.Int64Counter
}

// Dependency holds the collaborators of Usecase. RepoCache, RepoMQ,
// RepoArchive and Idempotency are optional.
type Dependency struct {
	RepoDB      repoDB
	RepoCache   repoCache
	RepoMQ      repoMQ
	RepoArchive repoArchive
	Stream      streamHub
	Senders     map[entity.Channel]Sender
	Idempotency idempotency.Idempotency
	Config      config.Config
	UID         uid.NumberID
	Clock       clock.Clock
	Validator   validator.Validator
	Goroutine   *goroutine.Manager
	Instrument  instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	opts := loadOptions(dep.Config)

	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	deliveries, err := ins.Meter("notification.usecase").Int64Counter(
		"notification.deliveries",
		metric.WithDescription("Number of logged delivery attempts by channel and status"),
	)
	if err != nil {
		slog.Error("failed to create notification delivery counter", "error", err)
	}

	return &Usecase{
		repoDB:      dep.RepoDB,
		repoCache:   dep.RepoCache,
		repoMQ:      dep.RepoMQ,
		repoArchive: dep.RepoArchive,
		stream:      dep.Stream,
		senders:     dep.Senders,
		idem:        dep.Idempotency,
		uid:         dep.UID,
		clock:       dep.Clock,
		validator:   dep.Validator,
		goroutine:   dep.Goroutine,
		ins:         ins,
		opts:        opts,
		policies:    newRetryPolicies(opts.defaultPolicy),
		retryQueue:  NewRetryQueue(),
		deliveries:  deliveries,
	}
}

// RetryQueue exposes the deferred retry queue for inspection.
func (s *Usecase) RetryQueue() *RetryQueue {
	return s.retryQueue
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) countDelivery(ctx context.Context, ch entity.Channel, status entity.DeliveryStatus) {
	if s.deliveries == nil {
		return
	}
	s.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", ch.String()),
		attribute.String("status", status.String()),
	))
}
