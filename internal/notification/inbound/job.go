package inbound

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gonotif/internal/pkg/config"
	"github.com/shandysiswandi/gonotif/internal/pkg/scheduler"
)

type sweeper interface {
	Sweep() int
}

// RegisterJobs adds the periodic notification jobs to s: the retry queue tick,
// the delivery log purge and, when limiter is set, the rate limit sweep.
func RegisterJobs(s *scheduler.Scheduler, cfg config.Config, uc ucJob, limiter sweeper) error {
	retryTick := time.Minute
	retentionTick := 24 * time.Hour
	sweepTick := time.Minute
	if cfg != nil {
		if v := cfg.GetSecond("modules.notification.retry.tick_seconds"); v > 0 {
			retryTick = v
		}
		if v := cfg.GetHour("modules.notification.retention.interval_hours"); v > 0 {
			retentionTick = v
		}
		if v := cfg.GetSecond("ratelimit.sweep_seconds"); v > 0 {
			sweepTick = v
		}
	}

	jobs := []scheduler.Job{
		{Name: "notification.retry_queue", Interval: retryTick, Run: uc.ProcessRetryQueue},
		{Name: "notification.retention", Interval: retentionTick, Run: func(ctx context.Context) error {
			n, err := uc.PurgeDeliveryLogs(ctx)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "delivery logs purged", "deleted", n)
			return nil
		}},
	}
	if limiter != nil {
		jobs = append(jobs, scheduler.Job{Name: "ratelimit.sweep", Interval: sweepTick, Run: func(ctx context.Context) error {
			if n := limiter.Sweep(); n > 0 {
				slog.DebugContext(ctx, "rate limit windows evicted", "count", n)
			}
			return nil
		}})
	}

	var errs []error
	for _, job := range jobs {
		errs = append(errs, s.Add(job))
	}
	return errors.Join(errs...)
}
