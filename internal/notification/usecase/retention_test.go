package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLogs(h *harness, n int, at time.Time, firstID int64) {
	for i := range n {
		h.db.logs = append(h.db.logs, entity.DeliveryLogEntry{
			ID:        firstID + int64(i),
			UserID:    "u-1",
			Channel:   entity.ChannelEmail,
			Status:    entity.DeliveryStatusDelivered,
			CreatedAt: at,
		})
	}
}

func TestPurgeDeliveryLogs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.uc.opts.retentionBatchSize = 2
	seedLogs(h, 5, t0.AddDate(0, 0, -91), 1)
	seedLogs(h, 2, t0.AddDate(0, 0, -10), 100)

	n, err := h.uc.PurgeDeliveryLogs(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 5, n)
	assert.Len(t, h.db.deleted, 3)
	assert.Len(t, h.db.Logs(), 2)
	assert.Empty(t, h.archive.keys)
}

func TestPurgeDeliveryLogs_ArchivesBeforeDelete(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.uc.opts.archiveEnabled = true
	h.uc.opts.retentionBatchSize = 3
	old := time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC)
	seedLogs(h, 4, old, 10)

	n, err := h.uc.PurgeDeliveryLogs(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 4, n)
	assert.Equal(t, []string{
		"delivery-logs/2024/11/20/10-12.jsonl",
		"delivery-logs/2024/11/20/13-13.jsonl",
	}, h.archive.keys)
}

func TestPurgeDeliveryLogs_KeepsPageWhenArchiveFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.uc.opts.archiveEnabled = true
	h.archive.err = errors.New("bucket unavailable")
	seedLogs(h, 3, t0.AddDate(-1, 0, 0), 1)

	n, err := h.uc.PurgeDeliveryLogs(context.Background())
	require.Error(t, err)

	assert.Zero(t, n)
	assert.Len(t, h.db.Logs(), 3)
	assert.Empty(t, h.db.deleted)
}
