package usecase

import (
	"context"
	"testing"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authed(userID string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID})
}

func TestInbox(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.db.inbox = []entity.InboxItem{
		{ID: 1, UserID: "u-1", Title: "a"},
		{ID: 2, UserID: "u-1", Title: "b"},
		{ID: 3, UserID: "u-2", Title: "c"},
	}
	ctx := authed("u-1")

	items, err := h.uc.ListInbox(ctx, ListInboxInput{Status: "unread"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, h.uc.MarkInboxRead(ctx, MarkInboxReadInput{ID: 2}))

	items, err = h.uc.ListInbox(ctx, ListInboxInput{Status: "read"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, t0, *items[0].ReadAt)

	err = h.uc.MarkInboxRead(ctx, MarkInboxReadInput{ID: 3})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeNotFound, gerr.Code())
}

func TestInbox_RequiresAuth(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.uc.ListInbox(context.Background(), ListInboxInput{})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
}

func TestDevices(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := authed("u-1")
	token := "fcm:APA91bHun4MxP5egoKMwt2KZFBaFUH-1RYqx"

	require.NoError(t, h.uc.RegisterDevice(ctx, RegisterDeviceInput{Token: token, Platform: "android"}))
	require.Len(t, h.db.devices, 1)
	assert.Equal(t, "u-1", h.db.devices[0].UserID)

	err := h.uc.RegisterDevice(ctx, RegisterDeviceInput{Token: "short", Platform: "android"})
	require.Error(t, err)

	err = h.uc.RegisterDevice(ctx, RegisterDeviceInput{Token: token, Platform: "symbian"})
	require.Error(t, err)

	require.NoError(t, h.uc.RemoveDevice(ctx, RemoveDeviceInput{Token: token}))
	assert.Empty(t, h.db.devices)

	err = h.uc.RemoveDevice(ctx, RemoveDeviceInput{Token: token})
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.CodeNotFound, gerr.Code())
}
