// Package archive writes expired delivery log pages to object storage before
// they are purged.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const contentType = "application/x-ndjson"

type Archive struct {
	store storage.Storage
	ins   instrument.Instrumentation
}

func New(store storage.Storage, ins instrument.Instrumentation) *Archive {
	return &Archive{store: store, ins: ins}
}

// ArchiveDeliveryLogs writes entries as JSON Lines under key.
func (a *Archive) ArchiveDeliveryLogs(ctx context.Context, key string, entries []entity.DeliveryLogEntry) (err error) {
	ctx, span := a.ins.Tracer("notification.outbound.archive").Start(ctx, "ArchiveDeliveryLogs")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("archive.key", key), attribute.Int("archive.entries", len(entries)))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("archive: encode entry %d: %w", e.ID, err)
		}
	}

	if err := a.store.Put(ctx, key, &buf, int64(buf.Len()), contentType); err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}

	return nil
}
