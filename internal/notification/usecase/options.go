package usecase

import (
	"time"

	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/config"
)

type options struct {
	preferenceTTL time.Duration

	inlineMaxAttempts int
	inlineBaseDelay   time.Duration

	bulkMaxPayloads int
	bulkChunkSize   int
	bulkConcurrency int
	bulkPause       time.Duration

	retentionDays      int
	retentionBatchSize int32
	archiveEnabled     bool

	idempotencyLock time.Duration
	idempotencyTTL  time.Duration

	defaultPolicy entity.RetryPolicy
}

func defaultOptions() options {
	return options{
		preferenceTTL:      5 * time.Minute,
		inlineMaxAttempts:  3,
		inlineBaseDelay:    time.Second,
		bulkMaxPayloads:    1000,
		bulkChunkSize:      100,
		bulkConcurrency:    10,
		bulkPause:          time.Second,
		retentionDays:      90,
		retentionBatchSize: 1000,
		idempotencyLock:    time.Minute,
		idempotencyTTL:     24 * time.Hour,
		defaultPolicy: entity.RetryPolicy{
			MaxRetries:   3,
			InitialDelay: time.Second,
			Multiplier:   2,
			MaxDelay:     5 * time.Minute,
		},
	}
}

// loadOptions reads modules.notification.*; missing or non-positive values keep the defaults.
func loadOptions(cfg config.Config) options {
	o := defaultOptions()
	if cfg == nil {
		return o
	}

	const p = "modules.notification."

	setDuration(&o.preferenceTTL, cfg.GetSecond(p+"preference.cache_ttl_seconds"))
	setInt(&o.inlineMaxAttempts, cfg.GetInt(p+"inline.max_attempts"))
	setDuration(&o.inlineBaseDelay, cfg.GetMillisecond(p+"inline.base_delay_ms"))

	setInt(&o.bulkMaxPayloads, cfg.GetInt(p+"bulk.max_payloads"))
	setInt(&o.bulkChunkSize, cfg.GetInt(p+"bulk.chunk_size"))
	setInt(&o.bulkConcurrency, cfg.GetInt(p+"bulk.concurrency"))
	setDuration(&o.bulkPause, cfg.GetMillisecond(p+"bulk.pause_ms"))

	setInt(&o.retentionDays, cfg.GetInt(p+"retention.days"))
	if v := cfg.GetInt32(p + "retention.batch_size"); v > 0 {
		o.retentionBatchSize = v
	}
	o.archiveEnabled = cfg.GetBool(p + "retention.archive.enabled")

	setDuration(&o.idempotencyLock, cfg.GetSecond(p+"idempotency.lock_seconds"))
	setDuration(&o.idempotencyTTL, cfg.GetHour(p+"idempotency.ttl_hours"))

	setInt(&o.defaultPolicy.MaxRetries, cfg.GetInt(p+"retry.default.max_retries"))
	setDuration(&o.defaultPolicy.InitialDelay, cfg.GetMillisecond(p+"retry.default.initial_delay_ms"))
	if v := cfg.GetFloat64(p + "retry.default.multiplier"); v >= 1 {
		o.defaultPolicy.Multiplier = v
	}
	setDuration(&o.defaultPolicy.MaxDelay, cfg.GetSecond(p+"retry.default.max_delay_seconds"))

	return o
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
