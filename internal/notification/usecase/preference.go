package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

type UserInput struct {
	UserID string `validate:"notblank,max=64"`
}

// GetPreferences returns the channel preferences of a user.
// Lookup failures degrade to all channels enabled.
func (s *Usecase) GetPreferences(ctx context.Context, in UserInput) (entity.NotificationPreferences, error) {
	ctx, span := s.startSpan(ctx, "GetPreferences")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return entity.NotificationPreferences{}, goerror.NewInvalidInput(err)
	}

	return s.resolvePreferences(ctx, in.UserID), nil
}

// resolvePreferences never fails: cache, then store, then a lazily created
// default row, then an in-memory default.
func (s *Usecase) resolvePreferences(ctx context.Context, userID string) entity.NotificationPreferences {
	if s.repoCache != nil {
		cached, err := s.repoCache.GetPreferences(ctx, userID)
		switch {
		case err == nil && cached != nil:
			return *cached
		case err != nil && !errors.Is(err, goerror.ErrNotFound):
			slog.WarnContext(ctx, "failed to cache get notification preferences", "user_id", userID, "error", err)
		}
	}

	prefs, err := s.repoDB.GetPreferences(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		prefs, err = s.repoDB.CreatePreferences(ctx, entity.DefaultPreferences(userID, s.clock.Now()))
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to repo resolve notification preferences, using defaults", "user_id", userID, "error", err)
		return entity.DefaultPreferences(userID, s.clock.Now())
	}

	if s.repoCache != nil {
		if err := s.repoCache.SetPreferences(ctx, *prefs, s.opts.preferenceTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache set notification preferences", "user_id", userID, "error", err)
		}
	}

	return *prefs
}

type UpdatePreferencesInput struct {
	UserID       string `validate:"notblank,max=64"`
	PushEnabled  *bool  `validate:"required"`
	EmailEnabled *bool  `validate:"required"`
	InAppEnabled *bool  `validate:"required"`
}

func (s *Usecase) UpdatePreferences(ctx context.Context, in UpdatePreferencesInput) (entity.NotificationPreferences, error) {
	ctx, span := s.startSpan(ctx, "UpdatePreferences")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return entity.NotificationPreferences{}, goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()
	prefs, err := s.repoDB.UpsertPreferences(ctx, entity.NotificationPreferences{
		UserID:       in.UserID,
		PushEnabled:  *in.PushEnabled,
		EmailEnabled: *in.EmailEnabled,
		InAppEnabled: *in.InAppEnabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert notification preferences", "user_id", in.UserID, "error", err)
		return entity.NotificationPreferences{}, goerror.NewServer(err)
	}

	s.evictPreferences(ctx, in.UserID)
	return *prefs, nil
}

type ChannelInput struct {
	UserID  string `validate:"notblank,max=64"`
	Channel string `validate:"required,oneof=push email in_app"`
}

func (s *Usecase) EnableChannel(ctx context.Context, in ChannelInput) (entity.NotificationPreferences, error) {
	ctx, span := s.startSpan(ctx, "EnableChannel")
	defer span.End()

	return s.setChannel(ctx, in, true)
}

func (s *Usecase) DisableChannel(ctx context.Context, in ChannelInput) (entity.NotificationPreferences, error) {
	ctx, span := s.startSpan(ctx, "DisableChannel")
	defer span.End()

	return s.setChannel(ctx, in, false)
}

func (s *Usecase) setChannel(ctx context.Context, in ChannelInput, enabled bool) (entity.NotificationPreferences, error) {
	if err := s.validator.Validate(in); err != nil {
		return entity.NotificationPreferences{}, goerror.NewInvalidInput(err)
	}

	ch := entity.ChannelFromString(in.Channel)
	prefs, err := s.repoDB.SetPreferenceChannel(ctx, in.UserID, ch, enabled, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo set notification preference channel", "user_id", in.UserID, "channel", ch.String(), "enabled", enabled, "error", err)
		return entity.NotificationPreferences{}, goerror.NewServer(err)
	}

	s.evictPreferences(ctx, in.UserID)
	return *prefs, nil
}

func (s *Usecase) evictPreferences(ctx context.Context, userID string) {
	if s.repoCache == nil {
		return
	}
	if err := s.repoCache.DeletePreferences(ctx, userID); err != nil {
		slog.WarnContext(ctx, "failed to cache delete notification preferences", "user_id", userID, "error", err)
	}
}
