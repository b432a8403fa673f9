package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
)

// PurgeDeliveryLogs deletes delivery log entries older than the retention
// window, one page at a time. With archiving enabled a page is deleted only
// after it was written to object storage.
func (s *Usecase) PurgeDeliveryLogs(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "PurgeDeliveryLogs")
	defer span.End()

	cutoff := s.clock.Now().AddDate(0, 0, -s.opts.retentionDays)
	archive := s.opts.archiveEnabled && s.repoArchive != nil

	var purged int64
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		page, err := s.repoDB.ListDeliveryLogsBefore(ctx, cutoff, s.opts.retentionBatchSize)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo list delivery logs before", "cutoff", cutoff, "error", err)
			return purged, goerror.NewServer(err)
		}
		if len(page) == 0 {
			break
		}

		if archive {
			key := archiveKey(page)
			if err := s.repoArchive.ArchiveDeliveryLogs(ctx, key, page); err != nil {
				slog.ErrorContext(ctx, "failed to archive delivery logs", "key", key, "entries", len(page), "error", err)
				return purged, goerror.NewServer(err)
			}
		}

		ids := lo.Map(page, func(e entity.DeliveryLogEntry, _ int) int64 { return e.ID })
		n, err := s.repoDB.DeleteDeliveryLogs(ctx, ids)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo delete delivery logs", "entries", len(ids), "error", err)
			return purged, goerror.NewServer(err)
		}
		purged += n

		if len(page) < int(s.opts.retentionBatchSize) {
			break
		}
	}

	slog.InfoContext(ctx, "delivery logs purged", "cutoff", cutoff, "purged", purged, "archived", archive)
	return purged, nil
}

// archiveKey names a page by the day of its first entry and its id range.
// Pages are read oldest first.
func archiveKey(page []entity.DeliveryLogEntry) string {
	first, last := page[0], page[len(page)-1]
	return fmt.Sprintf("delivery-logs/%s/%d-%d.jsonl",
		first.CreatedAt.UTC().Format("2006/01/02"), first.ID, last.ID)
}
