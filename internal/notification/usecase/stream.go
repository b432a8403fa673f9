package usecase

import (
	"context"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
)

// StreamNotifications subscribes the authenticated user to new in-app items.
// The channel closes when ctx is done.
func (s *Usecase) StreamNotifications(ctx context.Context) (<-chan entity.InboxItem, error) {
	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	return s.stream.Subscribe(ctx, clm.UserID), nil
}
