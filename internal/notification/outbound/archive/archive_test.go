package archive_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/notification/outbound/archive"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	key         string
	body        []byte
	size        int64
	contentType string
	err         error
}

func (f *fakeStorage) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.key, f.body, f.size, f.contentType = key, b, size, contentType
	return nil
}

func (f *fakeStorage) Close() error { return nil }

func TestArchiveDeliveryLogs(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{}
	a := archive.New(st, instrument.NewNoop())
	msg := "timeout"

	err := a.ArchiveDeliveryLogs(context.Background(), "delivery-logs/2025/01/01/1-2.jsonl", []entity.DeliveryLogEntry{
		{ID: 1, DeliveryID: 1, UserID: "u-1", Channel: entity.ChannelPush, Status: entity.DeliveryStatusDelivered},
		{ID: 2, DeliveryID: 2, UserID: "u-2", Channel: entity.ChannelEmail, Status: entity.DeliveryStatusFailed, ErrorMessage: &msg},
	})
	require.NoError(t, err)

	assert.Equal(t, "delivery-logs/2025/01/01/1-2.jsonl", st.key)
	assert.Equal(t, "application/x-ndjson", st.contentType)
	assert.EqualValues(t, len(st.body), st.size)

	var ids []int64
	sc := bufio.NewScanner(bytes.NewReader(st.body))
	for sc.Scan() {
		var e entity.DeliveryLogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestArchiveDeliveryLogs_PutError(t *testing.T) {
	t.Parallel()

	a := archive.New(&fakeStorage{err: errors.New("access denied")}, instrument.NewNoop())

	err := a.ArchiveDeliveryLogs(context.Background(), "k", []entity.DeliveryLogEntry{{ID: 1}})
	require.ErrorContains(t, err, "access denied")
}
