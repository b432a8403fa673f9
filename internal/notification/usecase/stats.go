package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

const (
	defaultStatsWindow = 24 * time.Hour
	maxStatsWindow     = 90 * 24 * time.Hour
	defaultFailedLimit = 20
)

type StatsInput struct {
	Window time.Duration
	UserID string `validate:"omitempty,max=64"`
}

func (s *Usecase) statsFilter(in StatsInput) (entity.StatsFilter, error) {
	if err := s.validator.Validate(in); err != nil {
		return entity.StatsFilter{}, goerror.NewInvalidInput(err)
	}

	window := in.Window
	switch {
	case window == 0:
		window = defaultStatsWindow
	case window < 0 || window > maxStatsWindow:
		return entity.StatsFilter{}, goerror.NewInvalidInput(nil, "window", "window must be between 1s and 2160h")
	}

	return entity.StatsFilter{Since: s.clock.Now().Add(-window), UserID: in.UserID}, nil
}

func (s *Usecase) GetDeliveryStats(ctx context.Context, in StatsInput) (*entity.Stats, error) {
	ctx, span := s.startSpan(ctx, "GetDeliveryStats")
	defer span.End()

	f, err := s.statsFilter(in)
	if err != nil {
		return nil, err
	}

	counts, err := s.repoDB.CountDeliveries(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count deliveries", "since", f.Since, "user_id", f.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	st := entity.NewStats(counts)
	return &st, nil
}

// GetChannelStats returns one row per channel, zero rows included.
func (s *Usecase) GetChannelStats(ctx context.Context, in StatsInput) ([]entity.Stats, error) {
	ctx, span := s.startSpan(ctx, "GetChannelStats")
	defer span.End()

	f, err := s.statsFilter(in)
	if err != nil {
		return nil, err
	}

	rows, err := s.repoDB.CountDeliveriesByChannel(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count deliveries by channel", "since", f.Since, "user_id", f.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	byKey := lo.KeyBy(rows, func(c entity.DeliveryCounts) string { return c.Key })

	out := make([]entity.Stats, 0, len(entity.Channels))
	for _, ch := range entity.Channels {
		c, ok := byKey[ch.String()]
		if !ok {
			c = entity.DeliveryCounts{Key: ch.String()}
		}
		out = append(out, entity.NewStats(c))
	}
	return out, nil
}

func (s *Usecase) GetNotificationTypeStats(ctx context.Context, in StatsInput) ([]entity.Stats, error) {
	ctx, span := s.startSpan(ctx, "GetNotificationTypeStats")
	defer span.End()

	f, err := s.statsFilter(in)
	if err != nil {
		return nil, err
	}

	rows, err := s.repoDB.CountDeliveriesByType(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count deliveries by type", "since", f.Since, "user_id", f.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return lo.Map(rows, func(c entity.DeliveryCounts, _ int) entity.Stats {
		return entity.NewStats(c)
	}), nil
}

type FailedDeliveriesInput struct {
	Limit   int32  `validate:"gte=0,lte=100"`
	Offset  int32  `validate:"gte=0"`
	Type    string `validate:"omitempty,max=64"`
	Channel string `validate:"omitempty,oneof=push email in_app"`
}

// GetFailedDeliveries pages through final failures, newest first.
func (s *Usecase) GetFailedDeliveries(ctx context.Context, in FailedDeliveriesInput) ([]entity.DeliveryLogEntry, error) {
	ctx, span := s.startSpan(ctx, "GetFailedDeliveries")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	nt := entity.NotificationType(in.Type)
	if in.Type != "" && !nt.IsValid() {
		return nil, goerror.NewInvalidInput(nil, "type", "type must be a supported notification type")
	}

	f := entity.FailedFilter{
		Limit:  in.Limit,
		Offset: in.Offset,
		Type:   nt,
	}
	if f.Limit == 0 {
		f.Limit = defaultFailedLimit
	}
	if in.Channel != "" {
		f.Channel = entity.ChannelFromString(in.Channel)
	}

	items, err := s.repoDB.ListFailedDeliveries(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list failed deliveries", "limit", f.Limit, "offset", f.Offset, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}
