package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

// Notify delivers every notification an upstream event produces. All payloads
// are validated before the first one is sent.
func (s *Usecase) Notify(ctx context.Context, ev entity.Event) ([]entity.Outcome, error) {
	ctx, span := s.startSpan(ctx, "Notify")
	defer span.End()

	payloads := ev.Notifications()
	if len(payloads) == 0 {
		slog.DebugContext(ctx, "event produced no notifications")
		return nil, nil
	}

	for _, p := range payloads {
		if err := s.checkPayload(p); err != nil {
			return nil, goerror.NewInvalidInput(err)
		}
	}

	var outcomes []entity.Outcome
	for _, p := range payloads {
		outcomes = append(outcomes, s.dispatch(ctx, p.Clone())...)
	}

	return outcomes, nil
}

type UserRegisteredInput struct {
	UserID   string `validate:"notblank,max=64"`
	Email    string `validate:"required,email,max=255"`
	FullName string `validate:"max=255"`
}

// ConsumeUserRegistration stores the email contact of a new user and welcomes
// them in-app.
func (s *Usecase) ConsumeUserRegistration(ctx context.Context, in UserRegisteredInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeUserRegistration")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.repoDB.UpsertContact(ctx, entity.Contact{
		UserID:   in.UserID,
		Email:    in.Email,
		FullName: in.FullName,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert contact", "user_id", in.UserID, "error", err)
		return goerror.NewServer(err)
	}

	name := in.FullName
	if name == "" {
		name = "there"
	}

	_, err := s.Notify(ctx, entity.PayloadEvent{Payload: entity.NotificationPayload{
		RecipientID: in.UserID,
		Type:        entity.TypeSystem,
		Title:       "Welcome aboard",
		Message:     "Hi " + name + ", your account is ready.",
	}})
	return err
}
