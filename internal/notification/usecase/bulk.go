package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gonotif/internal/notification/entity"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/validator"
)

type SendBulkInput struct {
	Payloads []entity.NotificationPayload
}

type BulkResult struct {
	Accepted int `json:"accepted"`
	Chunks   int `json:"chunks"`
	// Outcomes is indexed like the input payloads. Empty for accepted batches.
	Outcomes [][]entity.Outcome `json:"outcomes,omitempty"`
}

// SendBulkNotifications delivers a batch in chunks, pausing between chunks.
func (s *Usecase) SendBulkNotifications(ctx context.Context, in SendBulkInput) (BulkResult, error) {
	ctx, span := s.startSpan(ctx, "SendBulkNotifications")
	defer span.End()

	chunks, err := s.prepareBulk(in.Payloads)
	if err != nil {
		return BulkResult{}, err
	}

	return s.runBulk(ctx, chunks)
}

// AcceptBulkNotifications validates the batch and delivers it in the background.
func (s *Usecase) AcceptBulkNotifications(ctx context.Context, in SendBulkInput) (BulkResult, error) {
	ctx, span := s.startSpan(ctx, "AcceptBulkNotifications")
	defer span.End()

	chunks, err := s.prepareBulk(in.Payloads)
	if err != nil {
		return BulkResult{}, err
	}

	started := s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		_, err := s.runBulk(ctx, chunks)
		return err
	})
	if !started {
		return BulkResult{}, goerror.NewBusiness("server is busy, try again later", goerror.CodeTooManyRequest)
	}

	return BulkResult{Accepted: len(in.Payloads), Chunks: len(chunks)}, nil
}

// prepareBulk validates every payload before any is sent and splits the batch.
func (s *Usecase) prepareBulk(payloads []entity.NotificationPayload) ([][]entity.NotificationPayload, error) {
	if len(payloads) == 0 {
		return nil, goerror.NewInvalidInput(nil, "payloads", "payloads must contain at least 1 item")
	}
	if len(payloads) > s.opts.bulkMaxPayloads {
		return nil, goerror.NewInvalidInput(nil, "payloads",
			fmt.Sprintf("payloads must contain at most %d items", s.opts.bulkMaxPayloads))
	}

	for i, p := range payloads {
		err := s.checkPayload(p)
		if err == nil {
			continue
		}

		var verr validator.V10ValidationError
		if !errors.As(err, &verr) {
			return nil, goerror.NewInvalidInput(err)
		}

		kv := make([]string, 0, len(verr)*2)
		for _, field := range sortedKeys(verr) {
			kv = append(kv, fmt.Sprintf("payloads[%d].%s", i, field), verr[field])
		}
		return nil, goerror.NewInvalidInput(nil, kv...)
	}

	cloned := lo.Map(payloads, func(p entity.NotificationPayload, _ int) entity.NotificationPayload {
		return p.Clone()
	})
	return lo.Chunk(cloned, s.opts.bulkChunkSize), nil
}

func (s *Usecase) runBulk(ctx context.Context, chunks [][]entity.NotificationPayload) (BulkResult, error) {
	res := BulkResult{Chunks: len(chunks)}

	for i, chunk := range chunks {
		if i > 0 {
			if err := s.clock.Sleep(ctx, s.opts.bulkPause); err != nil {
				slog.WarnContext(ctx, "bulk dispatch interrupted", "chunk", i, "chunks", len(chunks), "error", err)
				return res, err
			}
		}

		res.Outcomes = append(res.Outcomes, s.dispatchChunk(ctx, chunk)...)
		res.Accepted += len(chunk)
	}

	slog.InfoContext(ctx, "bulk dispatch finished", "payloads", res.Accepted, "chunks", res.Chunks)
	return res, nil
}

// dispatchChunk sends every payload of chunk with at most bulkConcurrency in flight.
func (s *Usecase) dispatchChunk(ctx context.Context, chunk []entity.NotificationPayload) [][]entity.Outcome {
	out := make([][]entity.Outcome, len(chunk))
	sema := make(chan struct{}, max(1, s.opts.bulkConcurrency))

	var wg sync.WaitGroup
	for i, p := range chunk {
		sema <- struct{}{}
		wg.Go(func() {
			defer func() { <-sema }()
			out[i] = s.dispatch(ctx, p)
		})
	}
	wg.Wait()

	return out
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
