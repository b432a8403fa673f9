package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

type RegisterDeviceInput struct {
	Token    string `validate:"required,device_token"`
	Platform string `validate:"required,oneof=android ios web"`
}

// RegisterDevice stores a push token for the authenticated user.
func (s *Usecase) RegisterDevice(ctx context.Context, in RegisterDeviceInput) error {
	ctx, span := s.startSpan(ctx, "RegisterDevice")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.repoDB.RegisterUserDevice(ctx, entity.Device{
		UserID:   clm.UserID,
		Token:    in.Token,
		Platform: in.Platform,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo register user device", "user_id", clm.UserID, "platform", in.Platform, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

type RemoveDeviceInput struct {
	Token string `validate:"required,device_token"`
}

func (s *Usecase) RemoveDevice(ctx context.Context, in RemoveDeviceInput) error {
	ctx, span := s.startSpan(ctx, "RemoveDevice")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	removed, err := s.repoDB.RemoveUserDevice(ctx, clm.UserID, in.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo remove user device", "user_id", clm.UserID, "error", err)
		return goerror.NewServer(err)
	}
	if !removed {
		return goerror.NewBusiness("device not found", goerror.CodeNotFound)
	}

	return nil
}
