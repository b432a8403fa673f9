package goroutine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/gonotif/internal/pkg/goroutine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CollectsErrors(t *testing.T) {
	t.Parallel()

	m := goroutine.NewManager(4)
	boom := errors.New("boom")

	require.True(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	require.True(t, m.Go(context.Background(), func(context.Context) error { return boom }))

	assert.ErrorIs(t, m.Wait(), boom)
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }), "closed manager rejects work")
}

func TestManager_RejectsWhenFull(t *testing.T) {
	t.Parallel()

	m := goroutine.NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	assert.Equal(t, int64(1), m.Running())
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, m.Wait())
	assert.Zero(t, m.Running())
}

func TestManager_RecoversPanic(t *testing.T) {
	t.Parallel()

	m := goroutine.NewManager(1)
	m.Go(context.Background(), func(context.Context) error { panic("kaboom") })

	assert.NoError(t, m.Wait())
}

func TestManager_Nil(t *testing.T) {
	t.Parallel()

	var m *goroutine.Manager
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	assert.NoError(t, m.Wait())
}
