package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

type ListInboxInput struct {
	Status string `validate:"omitempty,oneof=all unread read"`
	Limit  int32  `validate:"gte=0,lte=100"`
	Offset int32  `validate:"gte=0"`
}

// ListInbox returns the in-app notifications of the authenticated user, newest first.
func (s *Usecase) ListInbox(ctx context.Context, in ListInboxInput) ([]entity.InboxItem, error) {
	ctx, span := s.startSpan(ctx, "ListInbox")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	status := entity.InboxStatus(in.Status)
	if status == "" {
		status = entity.InboxStatusAll
	}
	limit := in.Limit
	if limit == 0 {
		limit = 20
	}

	items, err := s.repoDB.ListInbox(ctx, clm.UserID, status, limit, in.Offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list inbox", "user_id", clm.UserID, "status", status, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type MarkInboxReadInput struct {
	ID int64 `validate:"gt=0"`
}

func (s *Usecase) MarkInboxRead(ctx context.Context, in MarkInboxReadInput) error {
	ctx, span := s.startSpan(ctx, "MarkInboxRead")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ok, err := s.repoDB.MarkInboxRead(ctx, clm.UserID, in.ID, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark inbox read", "user_id", clm.UserID, "id", in.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		return goerror.NewBusiness("notification not found", goerror.CodeNotFound)
	}

	return nil
}
